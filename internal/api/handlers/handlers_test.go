// Package handlers_test provides behavior tests for the API handlers package.
package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-zoned/internal/api/handlers"
	"github.com/haukened/rr-zoned/internal/api/middleware"
	"github.com/haukened/rr-zoned/internal/api/models"
	"github.com/haukened/rr-zoned/internal/dns/common/log"
	"github.com/haukened/rr-zoned/internal/dns/domain"
	"github.com/haukened/rr-zoned/internal/dns/services/classifier"
	"github.com/haukened/rr-zoned/internal/dns/services/zones"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) Records(ctx context.Context, zone string) (domain.RecordSet, *classifier.Classification) {
	args := m.Called(ctx, zone)
	return args.Get(0).(domain.RecordSet), classification(args.Get(1))
}

func (m *MockService) Add(ctx context.Context, user string, req domain.UpdateRequest) (domain.Record, *classifier.Classification) {
	args := m.Called(ctx, user, req)
	return args.Get(0).(domain.Record), classification(args.Get(1))
}

func (m *MockService) Delete(ctx context.Context, user, zone string, sel []zones.Selection) ([]domain.Record, *classifier.Classification) {
	args := m.Called(ctx, user, zone, sel)
	return args.Get(0).([]domain.Record), classification(args.Get(1))
}

func (m *MockService) History(zone string, limit int) ([]domain.Change, *classifier.Classification) {
	args := m.Called(zone, limit)
	return args.Get(0).([]domain.Change), classification(args.Get(1))
}

func (m *MockService) Zones() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockService) Settings() zones.Settings {
	return m.Called().Get(0).(zones.Settings)
}

func (m *MockService) Zone(zone string) string {
	if zone == "" {
		return "example.com"
	}
	return zone
}

func classification(v any) *classifier.Classification {
	if v == nil {
		return nil
	}
	return v.(*classifier.Classification)
}

func newRouter(svc handlers.ZoneService, reload handlers.ReloadFunc) *gin.Engine {
	logger := log.NewNoopLogger()
	h := handlers.New(svc, classifier.New(logger), reload, logger)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserKey, "alice")
	})
	r.GET("/health", h.Health)
	r.GET("/zones", h.ListZones)
	r.GET("/zones/:zone/records", h.GetRecords)
	r.POST("/zones/:zone/records", h.AddRecord)
	r.POST("/zones/:zone/records/delete", h.DeleteRecords)
	r.GET("/zones/:zone/history", h.GetHistory)
	r.POST("/reload", h.Reload)
	return r
}

func performRequest(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth_ReturnsOK(t *testing.T) {
	w := performRequest(newRouter(&MockService{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListZones(t *testing.T) {
	svc := &MockService{}
	svc.On("Zones").Return([]string{"example.com", "example.org"})
	svc.On("Settings").Return(zones.Settings{DefaultZone: "example.com", DefaultTTL: 3600, Writable: []string{"A"}})

	w := performRequest(newRouter(svc, nil), http.MethodGet, "/zones", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ZoneListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"example.com", "example.org"}, resp.Zones)
	assert.Equal(t, uint32(3600), resp.Settings.DefaultTTL)
}

func TestGetRecords_DefaultZone(t *testing.T) {
	svc := &MockService{}
	records := domain.RecordSet{{Owner: "@", Class: "IN", Type: "NS", TTL: 3600, Content: "ns1.example.com."}}
	svc.On("Records", mock.Anything, "example.com").Return(records, nil)

	w := performRequest(newRouter(svc, nil), http.MethodGet, "/zones/_default/records", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.RecordsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp.Zone)
	assert.Equal(t, []domain.Record(records), resp.Records)
	assert.Equal(t, 1, resp.Count)
}

func TestGetRecords_EmptyIsArray(t *testing.T) {
	svc := &MockService{}
	svc.On("Records", mock.Anything, "example.org").Return(domain.RecordSet(nil), nil)

	w := performRequest(newRouter(svc, nil), http.MethodGet, "/zones/example.org/records", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":[]`)
}

func TestGetRecords_Classified(t *testing.T) {
	svc := &MockService{}
	svc.On("Records", mock.Anything, "nope.example").Return(domain.RecordSet(nil), &classifier.Classification{
		Status:   http.StatusBadRequest,
		Severity: classifier.SeverityWarning,
		Message:  `Zone "nope.example" not configured.`,
		Zone:     "nope.example",
	})

	w := performRequest(newRouter(svc, nil), http.MethodGet, "/zones/nope.example/records", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrorResponse{
		Status:   http.StatusBadRequest,
		Severity: "warning",
		Message:  `Zone "nope.example" not configured.`,
		Zone:     "nope.example",
	}, decodeError(t, w))
}

func TestAddRecord(t *testing.T) {
	svc := &MockService{}
	want := domain.UpdateRequest{
		Zone:    "example.com",
		Owner:   "www",
		TTL:     0,
		Type:    "A",
		Content: "192.0.2.10",
		Action:  domain.ActionAdd,
	}
	rec := domain.Record{Owner: "www", Class: "IN", Type: "A", TTL: 3600, Content: "192.0.2.10"}
	svc.On("Add", mock.Anything, "alice", want).Return(rec, nil)

	w := performRequest(newRouter(svc, nil), http.MethodPost, "/zones/example.com/records",
		`{"owner":"www","type":"A","content":"192.0.2.10"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.ChangeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ActionAdd, resp.Action)
	assert.Equal(t, []domain.Record{rec}, resp.Records)
	svc.AssertExpectations(t)
}

func TestAddRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `owner=www`},
		{"missing content", `{"owner":"www","type":"A"}`},
		{"negative ttl", `{"owner":"www","type":"A","content":"192.0.2.1","ttl":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockService{}
			w := performRequest(newRouter(svc, nil), http.MethodPost, "/zones/example.com/records", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "Wrong form data, bad format.", resp.Message)
			assert.Equal(t, "warning", resp.Severity)
			svc.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDeleteRecords(t *testing.T) {
	svc := &MockService{}
	sel := []zones.Selection{{Owner: "www", Type: "A", Content: "192.0.2.10", Class: "IN", TTL: 300}}
	deleted := []domain.Record{{Owner: "www", Class: "IN", Type: "A", TTL: 300, Content: "192.0.2.10"}}
	svc.On("Delete", mock.Anything, "alice", "example.com", sel).Return(deleted, nil)

	w := performRequest(newRouter(svc, nil), http.MethodPost, "/zones/example.com/records/delete",
		`{"records":[{"owner":"www","type":"A","content":"192.0.2.10","class":"IN","ttl":300}]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ChangeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ActionDelete, resp.Action)
	assert.Equal(t, deleted, resp.Records)
}

func TestDeleteRecords_NoSelection(t *testing.T) {
	svc := &MockService{}
	svc.On("Delete", mock.Anything, "alice", "example.com", []zones.Selection(nil)).
		Return([]domain.Record(nil), &classifier.Classification{
			Status: http.StatusBadRequest, Severity: classifier.SeverityWarning, Message: "No record selected.",
		})

	w := performRequest(newRouter(svc, nil), http.MethodPost, "/zones/example.com/records/delete", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No record selected.", decodeError(t, w).Message)
}

func TestDeleteRecords_SelectionWithoutType(t *testing.T) {
	svc := &MockService{}
	w := performRequest(newRouter(svc, nil), http.MethodPost, "/zones/example.com/records/delete",
		`{"records":[{"owner":"www"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Wrong form data, bad format.", decodeError(t, w).Message)
	svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHistory(t *testing.T) {
	svc := &MockService{}
	changes := []domain.Change{{User: "alice", Zone: "example.com", Action: domain.ActionAdd}}
	svc.On("History", "example.com", 50).Return(changes, nil)
	svc.On("History", "example.com", 5).Return([]domain.Change(nil), nil)
	r := newRouter(svc, nil)

	w := performRequest(r, http.MethodGet, "/zones/example.com/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Changes, 1)

	w = performRequest(r, http.MethodGet, "/zones/example.com/history?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changes":[]`)

	w = performRequest(r, http.MethodGet, "/zones/example.com/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReload(t *testing.T) {
	called := 0
	ok := func() *classifier.Classification { called++; return nil }
	w := performRequest(newRouter(&MockService{}, ok), http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, called)

	failing := func() *classifier.Classification {
		return &classifier.Classification{Status: http.StatusBadRequest, Severity: classifier.SeverityWarning,
			Message: `Zone "new.example" not fully configured.`, Zone: "new.example"}
	}
	w = performRequest(newRouter(&MockService{}, failing), http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "new.example", decodeError(t, w).Zone)

	w = performRequest(newRouter(&MockService{}, nil), http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Unknown error.", decodeError(t, w).Message)
}
