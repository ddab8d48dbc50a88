// Package search finds research notes by text inside the caller's
// visibility scope.
package search

import (
	"context"

	"github.com/hangpark123/zoomnote/internal/rbac"
)

const defaultLimit = 20

// Result is a single search hit returned to the caller.
type Result struct {
	NoteID     int64  `json:"id"`
	SerialNo   string `json:"serialNo"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	WriterName string `json:"writerName"`
}

// Query describes a search request. Scope is always applied.
type Query struct {
	Text   string
	Scope  rbac.Scope
	Limit  int
	Offset int

	// WriterIDs are the users in Scope's department right now. Service
	// fills it from Postgres before querying the index, since the
	// department copied into indexed notes goes stale when a writer moves.
	WriterIDs []string
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return defaultLimit
	}
	return q.Limit
}

func (q Query) offset() int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push notes into a search index.
type Indexer interface {
	IndexNotes(ctx context.Context, notes []NoteRecord) error
	DeleteNote(ctx context.Context, id int64) error
}

// NoteRecord is the data we index for a note.
type NoteRecord struct {
	ID           int64  `json:"id"`
	SerialNo     string `json:"serialNo"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	WeeklyGoal   string `json:"weeklyGoal"`
	WriterID     string `json:"writerId"`
	WriterName   string `json:"writerName"`
	DepartmentID int64  `json:"departmentId"`
	ReportYear   int    `json:"reportYear"`
	ReportWeek   int    `json:"reportWeek"`
}
