package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeTransport answers every request with a canned response.
type fakeTransport struct {
	mu       sync.Mutex
	status   int
	body     string
	err      error
	requests []recordedRequest
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	f.requests = append(f.requests, recordedRequest{Method: req.Method, Path: req.URL.Path, Body: body})

	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body:    io.NopCloser(strings.NewReader(f.body)),
		Request: req,
	}, nil
}

func newTestSink(t *testing.T, ft *fakeTransport) *ElasticsearchSink {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{"http://es.test:9200"},
		Transport:    ft,
		DisableRetry: true,
	})
	require.NoError(t, err)
	return NewElasticsearchSink(client, "audit-test", time.Second, logger.NewNoOpLogger())
}

func sampleAction() models.AdminAction {
	admin := models.AdminProfile{ID: "admin-1", Role: models.RoleManager}
	a := NewAction(admin, models.ActionApproveApplication, "application", "app-9",
		map[string]interface{}{"amount": "2500000"}, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))
	return a
}

func TestNewAction(t *testing.T) {
	a := sampleAction()
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "admin-1", a.AdminID)
	assert.Equal(t, models.RoleManager, a.AdminRole)
	assert.Equal(t, "app-9", a.ResourceID)
	assert.Equal(t, time.UTC, a.Timestamp.Location())

	assert.NotEqual(t, a.ID, sampleAction().ID)
}

func TestElasticsearchSink_Record(t *testing.T) {
	ft := &fakeTransport{status: http.StatusCreated, body: `{"result":"created"}`}
	sink := newTestSink(t, ft)
	a := sampleAction()

	require.NoError(t, sink.Record(context.Background(), a))

	require.Len(t, ft.requests, 1)
	req := ft.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/audit-test/_doc/"+a.ID, req.Path)

	var indexed models.AdminAction
	require.NoError(t, json.Unmarshal([]byte(req.Body), &indexed))
	assert.Equal(t, models.ActionApproveApplication, indexed.Action)
	assert.Equal(t, "app-9", indexed.ResourceID)
}

func TestElasticsearchSink_RecordErrors(t *testing.T) {
	tests := []struct {
		name string
		ft   *fakeTransport
	}{
		{"error status", &fakeTransport{status: http.StatusInternalServerError, body: `{"error":"boom"}`}},
		{"transport failure", &fakeTransport{err: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestSink(t, tt.ft).Record(context.Background(), sampleAction())
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeAuditWriteFailed, stdErr.Code)
			assert.Equal(t, apperrors.KindDependency, stdErr.Kind)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestElasticsearchSink_EnsureIndex(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: `{"acknowledged":true}`}
	require.NoError(t, newTestSink(t, ft).EnsureIndex(context.Background()))
	assert.Equal(t, "/audit-test", ft.requests[0].Path)
	assert.Contains(t, ft.requests[0].Body, `"adminId":      {"type": "keyword"}`)

	exists := &fakeTransport{
		status: http.StatusBadRequest,
		body:   `{"error":{"type":"resource_already_exists_exception"},"status":400}`,
	}
	assert.NoError(t, newTestSink(t, exists).EnsureIndex(context.Background()))

	denied := &fakeTransport{status: http.StatusForbidden, body: `{"error":{"type":"security_exception"}}`}
	assert.Error(t, newTestSink(t, denied).EnsureIndex(context.Background()))
}

func TestElasticsearchSink_Search(t *testing.T) {
	a := sampleAction()
	src, err := json.Marshal(a)
	require.NoError(t, err)

	ft := &fakeTransport{
		status: http.StatusOK,
		body:   `{"hits":{"total":{"value":7},"hits":[{"_source":` + string(src) + `}]}}`,
	}
	sink := newTestSink(t, ft)

	res, err := sink.Search(context.Background(), Query{
		AdminID: "admin-1",
		Action:  models.ActionApproveApplication,
		Since:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Size:    500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Total)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, a.ID, res.Actions[0].ID)

	req := ft.requests[0]
	assert.Equal(t, "/audit-test/_search", req.Path)
	assert.Contains(t, req.Body, `{"term":{"adminId":"admin-1"}}`)
	assert.Contains(t, req.Body, `{"term":{"action":"approve_application"}}`)
	assert.Contains(t, req.Body, `"gte":"2026-03-01T00:00:00Z"`)
	assert.NotContains(t, req.Body, "resourceId")
}

func TestBuildSearchBody_NoFilters(t *testing.T) {
	body := buildSearchBody(Query{})
	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Empty(t, filters)
}

func TestLogSink_Record(t *testing.T) {
	sink := NewLogSink(logger.NewTestLogger(t))
	assert.NoError(t, sink.Record(context.Background(), sampleAction()))
}
