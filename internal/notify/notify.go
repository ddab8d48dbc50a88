// Package notify announces new research notes. Delivery is best effort:
// failures are logged and never reach the request that triggered them.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hangpark123/zoomnote/internal/logging"
)

// NoteCreated describes a freshly filed note.
type NoteCreated struct {
	NoteID      int64
	SerialNo    string
	WriterName  string
	Title       string
	ReportYear  int
	ReportWeek  int
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

func (e NoteCreated) Week() string {
	return fmt.Sprintf("%d년 %d주차", e.ReportYear, e.ReportWeek)
}

func (e NoteCreated) Period() string {
	return formatDate(e.PeriodStart) + " ~ " + formatDate(e.PeriodEnd)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// Text renders the plain-text announcement.
func (e NoteCreated) Text() string {
	return strings.Join([]string{
		"새 연구노트 작성 알림",
		"- 일련번호: " + e.SerialNo,
		"- 작성자: " + e.WriterName,
		"- 제목: " + e.Title,
		"- 보고주차: " + e.Week(),
		"- 보고기간: " + e.Period(),
		"앱 > 연구노트 메뉴에서 확인해 주세요.",
	}, "\n")
}

type Notifier interface {
	Name() string
	NoteCreated(ctx context.Context, e NoteCreated) error
}

const defaultTimeout = 10 * time.Second

// Dispatcher fans an event out to every notifier in the background.
type Dispatcher struct {
	notifiers []Notifier
	logger    logging.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(logger logging.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{notifiers: notifiers, logger: logger, timeout: defaultTimeout}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.notifiers) > 0
}

// NoteCreated returns immediately. The request context is detached so a
// finished request does not cancel delivery.
func (d *Dispatcher) NoteCreated(ctx context.Context, e NoteCreated) {
	if !d.Enabled() {
		return
	}
	base := context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := n.NoteCreated(ctx, e); err != nil {
				d.logger.Warn(ctx, "notification failed", "notifier", n.Name(), "note_id", e.NoteID, "error", err)
				return
			}
			d.logger.Debug(ctx, "notification sent", "notifier", n.Name(), "note_id", e.NoteID)
		}(n)
	}
}

// Wait blocks until every pending delivery finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
