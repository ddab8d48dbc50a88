package search

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hangpark123/zoomnote/internal/rbac"
	meili "github.com/meilisearch/meilisearch-go"
)

func TestScopeFilter(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"all", Query{Scope: rbac.Scope{Kind: rbac.ScopeAll}}, ""},
		{"department", Query{Scope: rbac.Scope{Kind: rbac.ScopeDepartment, DepartmentID: 4}, WriterIDs: []string{"u1", "u2"}}, `writerId IN ["u1", "u2"]`},
		{"own", Query{Scope: rbac.Scope{Kind: rbac.ScopeOwn, UserID: `u"1`}}, `writerId = "u\"1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scopeFilter(tt.query); got != tt.want {
				t.Errorf("scopeFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHitToResultPrefersFormatted(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`42`),
		"serialNo":   json.RawMessage(`"2026-3-101"`),
		"title":      json.RawMessage(`"Assay"`),
		"content":    json.RawMessage(`"long body"`),
		"writerName": json.RawMessage(`"Kim"`),
		"_formatted": json.RawMessage(`{"title":"<mark>Assay</mark>","content":"...body...","id":"42"}`),
	}
	r := hitToResult(hit)
	if r.NoteID != 42 || r.SerialNo != "2026-3-101" || r.WriterName != "Kim" {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Title != "<mark>Assay</mark>" || r.Snippet != "...body..." {
		t.Fatalf("expected highlighted fields, got %+v", r)
	}
}

type fakePrimary struct {
	healthy bool
	err     error
	results []Result
	indexed []NoteRecord
	queries []Query
}

// Search returns results, or when indexed holds documents, the documents
// whose writer passes the query scope the way the Meilisearch filter does.
func (f *fakePrimary) Search(_ context.Context, q Query) ([]Result, int, error) {
	f.queries = append(f.queries, q)
	if f.err != nil || len(f.indexed) == 0 {
		return f.results, len(f.results), f.err
	}
	var out []Result
	for _, n := range f.indexed {
		if q.Scope.Kind == rbac.ScopeDepartment && !slices.Contains(q.WriterIDs, n.WriterID) {
			continue
		}
		out = append(out, Result{NoteID: n.ID, WriterName: n.WriterName})
	}
	return out, len(out), nil
}
func (f *fakePrimary) Healthy() bool { return f.healthy }
func (f *fakePrimary) IndexNotes(_ context.Context, n []NoteRecord) error {
	f.indexed = append(f.indexed, n...)
	return nil
}
func (f *fakePrimary) DeleteNote(context.Context, int64) error { return nil }

func newMockPgFTS(t *testing.T) (*PgFTS, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPgFTS(db), mock
}

func TestServiceUsesMeiliWhenHealthy(t *testing.T) {
	primary := &fakePrimary{healthy: true, results: []Result{{NoteID: 1}}}
	s := newService(primary, nil, nil)

	resp := s.Search(context.Background(), Query{Text: " assay "})
	if resp.Engine != MeiliEngine || resp.Total != 1 || resp.Query != "assay" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServiceFallsBackToPg(t *testing.T) {
	pg, mock := newMockPgFTS(t)
	primary := &fakePrimary{healthy: true, err: errors.New("boom")}
	s := newService(primary, pg, nil)

	mock.ExpectQuery(`^SELECT count\(\*\) FROM research_notes rn JOIN users w ON w\.id = rn\.writer_id WHERE rn\.fts @@ plainto_tsquery\('simple', \$1\) AND rn\.writer_id = \$2$`).
		WithArgs("assay", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)^SELECT rn\.id, rn\.serial_no.*AND rn\.writer_id = \$2.*LIMIT 20 OFFSET 0$`).
		WithArgs("assay", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "serial_no", "title", "snippet", "name"}).
			AddRow(int64(3), "2026-3-1", "Assay", "<b>assay</b>", "Kim"))

	resp := s.Search(context.Background(), Query{Text: "assay", Scope: rbac.Scope{Kind: rbac.ScopeOwn, UserID: "u1"}})
	if resp.Engine != PgEngine || resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].NoteID != 3 || resp.Results[0].WriterName != "Kim" {
		t.Fatalf("unexpected result: %+v", resp.Results[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestServiceDepartmentScopeOnPg(t *testing.T) {
	pg, mock := newMockPgFTS(t)
	s := newService(nil, pg, nil)

	mock.ExpectQuery(`AND w\.department_id = \$2$`).WithArgs("x", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)AND w\.department_id = \$2.*LIMIT 5 OFFSET 10$`).WithArgs("x", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "serial_no", "title", "snippet", "name"}))

	resp := s.Search(context.Background(), Query{Text: "x", Limit: 5, Offset: 10, Scope: rbac.Scope{Kind: rbac.ScopeDepartment, DepartmentID: 9}})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", resp.Results)
	}
}

func TestServiceBlankQuery(t *testing.T) {
	s := newService(nil, nil, nil)
	resp := s.Search(context.Background(), Query{Text: "   "})
	if resp.Total != 0 || resp.Results == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReindexAllFromPG(t *testing.T) {
	pg, mock := newMockPgFTS(t)
	primary := &fakePrimary{healthy: true}
	s := newService(primary, pg, nil)

	mock.ExpectQuery(`(?s)FROM research_notes rn\s+JOIN users w`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "serial_no", "title", "content", "weekly_goal", "writer_id", "name", "department_id", "report_year", "report_week"}).
			AddRow(int64(1), "2026-3-1", "T", "C", "", "u1", "Kim", int64(2), int64(2026), int64(3)))

	s.ReindexAllFromPG(context.Background())
	if len(primary.indexed) != 1 || primary.indexed[0].WriterID != "u1" || primary.indexed[0].DepartmentID != 2 {
		t.Fatalf("unexpected indexed records: %+v", primary.indexed)
	}
}

func TestServiceDepartmentScopeFollowsCurrentMembers(t *testing.T) {
	// u1 moved from department 4 to 5 after note 1 was indexed with
	// departmentId 4.
	indexed := []NoteRecord{
		{ID: 1, WriterID: "u1", WriterName: "Kim", DepartmentID: 4},
		{ID: 2, WriterID: "u2", WriterName: "Lee", DepartmentID: 4},
	}
	run := func(t *testing.T, dept int64, members []string) Response {
		t.Helper()
		pg, mock := newMockPgFTS(t)
		rows := sqlmock.NewRows([]string{"id"})
		for _, id := range members {
			rows.AddRow(id)
		}
		mock.ExpectQuery(`^SELECT id FROM users WHERE department_id = \$1 ORDER BY id$`).
			WithArgs(dept).
			WillReturnRows(rows)
		s := newService(&fakePrimary{healthy: true, indexed: indexed}, pg, nil)

		resp := s.Search(context.Background(), Query{Text: "assay", Scope: rbac.Scope{Kind: rbac.ScopeDepartment, DepartmentID: dept}})
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatal(err)
		}
		if resp.Engine != MeiliEngine {
			t.Fatalf("expected meilisearch engine, got %s", resp.Engine)
		}
		return resp
	}

	old := run(t, 4, []string{"u2"})
	if len(old.Results) != 1 || old.Results[0].NoteID != 2 {
		t.Fatalf("old department must only see note 2, got %+v", old.Results)
	}
	moved := run(t, 5, []string{"u1"})
	if len(moved.Results) != 1 || moved.Results[0].NoteID != 1 {
		t.Fatalf("new department must see note 1, got %+v", moved.Results)
	}
}

func TestServiceDepartmentWritersErrorFallsBackToPg(t *testing.T) {
	pg, mock := newMockPgFTS(t)
	primary := &fakePrimary{healthy: true, results: []Result{{NoteID: 99}}}
	s := newService(primary, pg, nil)

	mock.ExpectQuery(`^SELECT id FROM users`).WithArgs(int64(4)).WillReturnError(errors.New("conn reset"))
	mock.ExpectQuery(`AND w\.department_id = \$2$`).WithArgs("x", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`(?s)AND w\.department_id = \$2.*LIMIT 20 OFFSET 0$`).WithArgs("x", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "serial_no", "title", "snippet", "name"}))

	resp := s.Search(context.Background(), Query{Text: "x", Scope: rbac.Scope{Kind: rbac.ScopeDepartment, DepartmentID: 4}})
	if resp.Engine != PgEngine || len(resp.Results) != 0 {
		t.Fatalf("expected an empty postgres response, got %+v", resp)
	}
	if len(primary.queries) != 0 {
		t.Fatalf("index must not be queried without current members")
	}
}
