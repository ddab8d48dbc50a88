package notify

import (
	"context"

	"github.com/hangpark123/zoomnote/internal/email"
)

type mailer interface {
	SendNoteCreated(to []string, data email.NoteCreatedData, textBody string) error
}

// Email mails the announcement to a fixed recipient list.
type Email struct {
	mailer mailer
	to     []string
}

func NewEmail(svc *email.Service, to []string) *Email {
	return &Email{mailer: svc, to: to}
}

func (m *Email) Name() string { return "email" }

func (m *Email) NoteCreated(ctx context.Context, e NoteCreated) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.mailer.SendNoteCreated(m.to, email.NoteCreatedData{
		SerialNo:   e.SerialNo,
		WriterName: e.WriterName,
		Title:      e.Title,
		Period:     e.Period(),
		Week:       e.Week(),
	}, e.Text())
}
