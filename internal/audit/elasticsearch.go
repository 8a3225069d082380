package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"financing-workers/internal/common/errors"
	"financing-workers/internal/common/logger"
	"financing-workers/internal/common/metrics"
	"financing-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultIndex   = "admin-actions"
	maxSearchSize  = 100
	defaultTimeout = 5 * time.Second
)

// indexMapping keeps identifiers as keywords so term filters match exactly.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "adminId":      {"type": "keyword"},
      "adminRole":    {"type": "keyword"},
      "action":       {"type": "keyword"},
      "resourceType": {"type": "keyword"},
      "resourceId":   {"type": "keyword"},
      "details":      {"type": "object", "enabled": false},
      "timestamp":    {"type": "date"}
    }
  }
}`

type ElasticsearchSink struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	log     logger.Logger
}

func NewElasticsearchSink(client *elasticsearch.Client, index string, timeout time.Duration, log logger.Logger) *ElasticsearchSink {
	if index == "" {
		index = DefaultIndex
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ElasticsearchSink{
		client:  client,
		index:   index,
		timeout: timeout,
		log:     log.WithFields(map[string]interface{}{"component": "audit", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (s *ElasticsearchSink) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(indexMapping),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewDependencyError(errors.ErrCodeAuditWriteFailed, "elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return errors.NewDependencyError(errors.ErrCodeAuditWriteFailed, "elasticsearch",
			fmt.Errorf("create index %s: %s", s.index, res.Status()))
	}
	return nil
}

// Record indexes the entry under its id, so a retried write replaces rather than duplicates.
func (s *ElasticsearchSink) Record(ctx context.Context, a models.AdminAction) error {
	body, err := json.Marshal(a)
	if err != nil {
		return errors.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: a.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		metrics.AuditWrites.WithLabelValues("elasticsearch", "error").Inc()
		return errors.NewDependencyError(errors.ErrCodeAuditWriteFailed, "elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.AuditWrites.WithLabelValues("elasticsearch", "error").Inc()
		return errors.NewDependencyError(errors.ErrCodeAuditWriteFailed, "elasticsearch",
			fmt.Errorf("index %s: %s", s.index, res.Status()))
	}

	metrics.AuditWrites.WithLabelValues("elasticsearch", "ok").Inc()
	s.log.Debug("admin action indexed", map[string]interface{}{"auditId": a.ID, "action": string(a.Action)})
	return nil
}

// Query selects entries. Empty fields do not filter.
type Query struct {
	AdminID      string                 `json:"adminId,omitempty"`
	Action       models.AdminActionType `json:"action,omitempty"`
	ResourceType string                 `json:"resourceType,omitempty"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Since        time.Time              `json:"since,omitempty"`
	Until        time.Time              `json:"until,omitempty"`
	From         int                    `json:"from,omitempty"`
	Size         int                    `json:"size,omitempty"`
}

// SearchResult is one page of entries, newest first.
type SearchResult struct {
	Total   int64                `json:"total"`
	Actions []models.AdminAction `json:"actions"`
}

func buildSearchBody(q Query) map[string]interface{} {
	filters := []interface{}{}
	term := func(field, value string) {
		if value != "" {
			filters = append(filters, map[string]interface{}{"term": map[string]interface{}{field: value}})
		}
	}
	term("adminId", q.AdminID)
	term("action", string(q.Action))
	term("resourceType", q.ResourceType)
	term("resourceId", q.ResourceID)

	if !q.Since.IsZero() || !q.Until.IsZero() {
		r := map[string]interface{}{}
		if !q.Since.IsZero() {
			r["gte"] = q.Since.UTC().Format(time.RFC3339)
		}
		if !q.Until.IsZero() {
			r["lt"] = q.Until.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{"range": map[string]interface{}{"timestamp": r}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (s *ElasticsearchSink) Search(ctx context.Context, q Query) (*SearchResult, error) {
	if q.Size <= 0 || q.Size > maxSearchSize {
		q.Size = 20
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		From:  &q.From,
		Size:  &q.Size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.NewDependencyError(errors.ErrCodeExternalService, "elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewDependencyError(errors.ErrCodeExternalService, "elasticsearch",
			fmt.Errorf("search %s: %s", s.index, res.Status()))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.AdminAction `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewDependencyError(errors.ErrCodeExternalService, "elasticsearch",
			fmt.Errorf("decode search response: %w", err))
	}

	out := &SearchResult{Total: r.Hits.Total.Value, Actions: make([]models.AdminAction, 0, len(r.Hits.Hits))}
	for _, h := range r.Hits.Hits {
		out.Actions = append(out.Actions, h.Source)
	}
	return out, nil
}
