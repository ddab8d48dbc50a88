package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hangpark123/zoomnote/internal/rbac"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const tsQuery = "plainto_tsquery('simple', $1)"

// Search matches the generated fts column and ranks with ts_rank, using
// ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	where := "rn.fts @@ " + tsQuery
	args := []any{q.Text}
	switch q.Scope.Kind {
	case rbac.ScopeAll:
	case rbac.ScopeDepartment:
		args = append(args, q.Scope.DepartmentID)
		where += fmt.Sprintf(" AND w.department_id = $%d", len(args))
	default:
		args = append(args, q.Scope.UserID)
		where += fmt.Sprintf(" AND rn.writer_id = $%d", len(args))
	}
	from := `FROM research_notes rn JOIN users w ON w.id = rn.writer_id WHERE ` + where

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) "+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`SELECT rn.id, rn.serial_no, rn.title,
			ts_headline('simple', rn.content, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			w.name
		%s
		ORDER BY ts_rank(rn.fts, %s) DESC, rn.id DESC
		LIMIT %d OFFSET %d`, tsQuery, from, tsQuery, q.limit(), q.offset())

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.NoteID, &r.SerialNo, &r.Title, &r.Snippet, &r.WriterName); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// DepartmentWriters returns the ids of the users currently in department.
func (p *PgFTS) DepartmentWriters(ctx context.Context, departmentID int64) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id FROM users WHERE department_id = $1 ORDER BY id`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("department writers: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan writer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadAllRecords returns every note for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]NoteRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT rn.id, rn.serial_no, rn.title, rn.content, COALESCE(rn.weekly_goal, ''),
			rn.writer_id, w.name, COALESCE(w.department_id, 0), rn.report_year, rn.report_week
		FROM research_notes rn
		JOIN users w ON w.id = rn.writer_id
		ORDER BY rn.id
	`)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	notes := make([]NoteRecord, 0)
	for rows.Next() {
		var n NoteRecord
		if err := rows.Scan(&n.ID, &n.SerialNo, &n.Title, &n.Content, &n.WeeklyGoal,
			&n.WriterID, &n.WriterName, &n.DepartmentID, &n.ReportYear, &n.ReportWeek); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}
