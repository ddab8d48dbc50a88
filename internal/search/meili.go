package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/rbac"
	meili "github.com/meilisearch/meilisearch-go"
)

const idxNotes = "research_notes"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  logging.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the notes index.
// An unreachable server is tolerated; the health loop picks it up later.
func NewMeili(url, apiKey string, logger logging.Logger) *Meili {
	if logger == nil {
		logger = logging.Discard()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn(context.Background(), "meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	ctx := context.Background()
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxNotes, PrimaryKey: "id"}); err != nil {
		m.logger.Debug(ctx, "create index (may already exist)", "index", idxNotes, "error", err)
	}

	index := m.client.Index(idxNotes)
	filterable := []interface{}{"writerId", "reportYear", "reportWeek"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn(ctx, "update filterable attributes", "index", idxNotes, "error", err)
	}
	searchable := []string{"title", "content", "weeklyGoal", "serialNo", "writerName"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn(ctx, "update searchable attributes", "index", idxNotes, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info(context.Background(), "meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// scopeFilter turns a visibility scope into a Meilisearch filter expression.
// A department is matched through its current writers.
func scopeFilter(q Query) string {
	switch q.Scope.Kind {
	case rbac.ScopeAll:
		return ""
	case rbac.ScopeDepartment:
		quoted := make([]string, 0, len(q.WriterIDs))
		for _, id := range q.WriterIDs {
			quoted = append(quoted, strconv.Quote(id))
		}
		return fmt.Sprintf("writerId IN [%s]", strings.Join(quoted, ", "))
	default:
		return fmt.Sprintf("writerId = %s", strconv.Quote(q.Scope.UserID))
	}
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	if q.Scope.Kind == rbac.ScopeDepartment && len(q.WriterIDs) == 0 {
		return nil, 0, nil
	}

	sr := &meili.SearchRequest{
		IndexUID:              idxNotes,
		Query:                 q.Text,
		Limit:                 int64(q.limit()),
		Offset:                int64(q.offset()),
		AttributesToHighlight: []string{"title", "content"},
		AttributesToCrop:      []string{"content"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if f := scopeFilter(q); f != "" {
		sr.Filter = f
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{sr}})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Result
	total := 0
	for _, r := range resp.Results {
		total += int(r.EstimatedTotalHits)
		for _, hit := range r.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		SerialNo:   decodeString(hit, "serialNo"),
		WriterName: decodeString(hit, "writerName"),
	}
	if raw, ok := hit["id"]; ok {
		_ = json.Unmarshal(raw, &r.NoteID)
	}
	r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
	r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexNotes adds or updates notes in the search index.
func (m *Meili) IndexNotes(_ context.Context, notes []NoteRecord) error {
	if len(notes) == 0 {
		return nil
	}
	_, err := m.client.Index(idxNotes).AddDocuments(notes, nil)
	return err
}

// DeleteNote removes a note from the search index.
func (m *Meili) DeleteNote(_ context.Context, id int64) error {
	_, err := m.client.Index(idxNotes).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}
