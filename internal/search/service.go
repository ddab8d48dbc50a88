package search

import (
	"context"
	"errors"
	"strings"

	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/rbac"
)

// MeiliEngine is the engine name reported when Meilisearch answered.
const (
	MeiliEngine = "meilisearch"
	PgEngine    = "postgres"
)

type primary interface {
	Searcher
	Indexer
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili  primary
	pgfts  *PgFTS
	logger logging.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger logging.Logger) *Service {
	if meili == nil {
		return newService(nil, pgfts, logger)
	}
	return newService(meili, pgfts, logger)
}

func newService(p primary, pgfts *PgFTS, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{meili: p, pgfts: pgfts, logger: logger}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	empty := Response{Results: []Result{}, Query: q.Text, Engine: PgEngine}
	if q.Text == "" {
		return empty
	}
	if s.meiliReady() {
		scoped, err := s.withDepartmentWriters(ctx, q)
		if err == nil {
			var results []Result
			var total int
			results, total, err = s.meili.Search(ctx, scoped)
			if err == nil {
				return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: MeiliEngine}
			}
		}
		s.logger.Warn(ctx, "meilisearch error, falling back to pgfts", "error", err)
	}
	if s.pgfts == nil {
		return empty
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.logger.Error(ctx, "pgfts search failed", "error", err)
		return empty
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: PgEngine}
}

// withDepartmentWriters resolves a department scope to the writers who
// belong to it now, so index filtering follows profile changes at once.
func (s *Service) withDepartmentWriters(ctx context.Context, q Query) (Query, error) {
	if q.Scope.Kind != rbac.ScopeDepartment {
		return q, nil
	}
	if s.pgfts == nil {
		return q, errors.New("department writers unavailable without postgres")
	}
	ids, err := s.pgfts.DepartmentWriters(ctx, q.Scope.DepartmentID)
	if err != nil {
		return q, err
	}
	q.WriterIDs = ids
	return q, nil
}

// IndexNote pushes a note to Meilisearch in the background.
func (s *Service) IndexNote(ctx context.Context, n NoteRecord) {
	if !s.meiliReady() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.meili.IndexNotes(ctx, []NoteRecord{n}); err != nil {
			s.logger.Warn(ctx, "index note failed", "note_id", n.ID, "error", err)
		}
	}()
}

// DeleteNote removes a note from Meilisearch in the background.
func (s *Service) DeleteNote(ctx context.Context, id int64) {
	if !s.meiliReady() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.meili.DeleteNote(ctx, id); err != nil {
			s.logger.Warn(ctx, "delete note from index failed", "note_id", id, "error", err)
		}
	}()
}

// ReindexAllFromPG copies every note from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if !s.meiliReady() || s.pgfts == nil {
		return
	}
	notes, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn(ctx, "reindex load failed", "error", err)
		return
	}
	if len(notes) == 0 {
		return
	}
	if err := s.meili.IndexNotes(ctx, notes); err != nil {
		s.logger.Warn(ctx, "reindex notes failed", "error", err)
		return
	}
	s.logger.Info(ctx, "search index rebuilt", "notes", len(notes))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
