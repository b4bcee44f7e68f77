package audit

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-zoned/internal/dns/common/utils"
	"github.com/haukened/rr-zoned/internal/dns/domain"
)

var (
	bucketZones = []byte("zones")
	bucketMeta  = []byte("meta")
	keyUpdated  = []byte("updated")
)

const (
	errOpenJournal  = "open journal %s: %w"
	errEncodeChange = "encode change: %w"
	errDecodeChange = "decode change %d of zone %s: %w"
	errZoneRequired = "change has no zone"
	errReadStats    = "read journal stats: %w"
)

// boltJournal implements Journal using bbolt. Each zone has its own nested
// bucket keyed by a big-endian sequence so cursor order is append order.
type boltJournal struct {
	db *bbolt.DB
}

// Open opens (or creates) a journal database at path and ensures buckets exist.
func Open(path string) (Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf(errOpenJournal, path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketZones); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf(errOpenJournal, path, err)
	}
	return &boltJournal{db: db}, nil
}

func (j *boltJournal) Close() error { return j.db.Close() }

func (j *boltJournal) Append(change domain.Change) error {
	zone := utils.ZoneKey(change.Zone)
	if zone == "" {
		return errors.New(errZoneRequired)
	}
	value, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf(errEncodeChange, err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketZones).CreateBucketIfNotExists([]byte(zone))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), value); err != nil {
			return err
		}
		updated := make([]byte, 8)
		binary.BigEndian.PutUint64(updated, uint64(change.Time.Unix()))
		return tx.Bucket(bucketMeta).Put(keyUpdated, updated)
	})
}

func (j *boltJournal) List(zone string, limit int) ([]domain.Change, error) {
	zone = utils.ZoneKey(zone)
	var out []domain.Change
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketZones).Bucket([]byte(zone))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var ch domain.Change
			if err := json.Unmarshal(v, &ch); err != nil {
				return fmt.Errorf(errDecodeChange, binary.BigEndian.Uint64(k), zone, err)
			}
			out = append(out, ch)
		}
		return nil
	})
	return out, err
}

func (j *boltJournal) Stats() (Stats, error) {
	st := Stats{}
	err := j.db.View(func(tx *bbolt.Tx) error {
		zones := tx.Bucket(bucketZones)
		if err := zones.ForEachBucket(func(name []byte) error {
			st.Zones++
			st.Entries += uint64(zones.Bucket(name).Stats().KeyN)
			return nil
		}); err != nil {
			return err
		}
		if v := tx.Bucket(bucketMeta).Get(keyUpdated); len(v) == 8 {
			st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf(errReadStats, err)
	}
	return st, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
