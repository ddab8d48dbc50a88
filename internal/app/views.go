package app

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/store"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

// flexInt accepts 7 as well as "7". Form-backed clients send numbers as
// strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if strings.TrimSpace(raw) == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*f = flexInt(n)
	return nil
}

// flexBool accepts true as well as "true".
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(data)), `"`) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

type NoteInput struct {
	RecordDate  string  `json:"recordDate"`
	ReportYear  flexInt `json:"reportYear"`
	ReportWeek  flexInt `json:"reportWeek"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	PeriodStart string  `json:"periodStart"`
	PeriodEnd   string  `json:"periodEnd"`
	WeeklyGoal  string  `json:"weeklyGoal"`
}

type NoteUpdateInput struct {
	NoteInput
	SerialNo  string   `json:"serialNo"`
	AdminEdit flexBool `json:"adminEdit"`
}

type SignInput struct {
	Role        string `json:"role"`
	Clear       bool   `json:"clear"`
	ProxyUserID string `json:"proxyUserId"`
}

type SignatureInput struct {
	SignatureData string `json:"signatureData"`
	SignatureType string `json:"signatureType"`
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, validationError(field + " must be a YYYY-MM-DD date")
	}
	return t, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type slotView struct {
	SignerID      *string    `json:"signerId"`
	SignerName    *string    `json:"signerName"`
	SignatureData *string    `json:"signatureData"`
	SignatureType string     `json:"signatureType"`
	SignedAt      *time.Time `json:"signedAt"`
}

func newSlotView(st workflow.SlotState, signerName string) slotView {
	if !st.Signed() {
		return slotView{SignatureType: string(workflow.KindNone)}
	}
	v := slotView{
		SignerID:      &st.SignerID,
		SignatureData: &st.Signature.Data,
		SignatureType: string(st.Signature.Kind),
	}
	if signerName != "" {
		v.SignerName = &signerName
	}
	at := st.SignedAt
	v.SignedAt = &at
	return v
}

type attachmentView struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	FileMime string `json:"fileMime"`
}

type noteView struct {
	ID                 int64            `json:"id"`
	WriterID           string           `json:"writerId"`
	WriterName         string           `json:"writerName"`
	WriterJobTitle     string           `json:"writerJobTitle"`
	WriterRole         rbac.Role        `json:"writerRole"`
	WriterDepartmentID int64            `json:"writerDepartmentId"`
	DepartmentName     string           `json:"departmentName"`
	RecordDate         string           `json:"recordDate"`
	ReportYear         int              `json:"reportYear"`
	ReportWeek         int              `json:"reportWeek"`
	SerialNo           string           `json:"serialNo"`
	Title              string           `json:"title"`
	Content            string           `json:"content"`
	PeriodStart        *string          `json:"periodStart"`
	PeriodEnd          *string          `json:"periodEnd"`
	WeeklyGoal         string           `json:"weeklyGoal"`
	Checker            slotView         `json:"checker"`
	Reviewer           slotView         `json:"reviewer"`
	Locked             bool             `json:"locked"`
	Attachments        []attachmentView `json:"attachments"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func newNoteView(n store.Note) noteView {
	v := noteView{
		ID:                 n.ID,
		WriterID:           n.WriterID,
		WriterName:         n.WriterName,
		WriterJobTitle:     n.WriterJobTitle,
		WriterRole:         n.WriterRole,
		WriterDepartmentID: n.WriterDepartmentID,
		DepartmentName:     n.DepartmentName,
		RecordDate:         n.RecordDate.Format(time.DateOnly),
		ReportYear:         n.ReportYear,
		ReportWeek:         n.ReportWeek,
		SerialNo:           n.SerialNo,
		Title:              n.Title,
		Content:            n.Content,
		PeriodStart:        dateString(n.PeriodStart),
		PeriodEnd:          dateString(n.PeriodEnd),
		WeeklyGoal:         n.WeeklyGoal,
		Checker:            newSlotView(n.Checker, n.CheckerName),
		Reviewer:           newSlotView(n.Reviewer, n.ReviewerName),
		Locked:             n.Checker.Signed(),
		Attachments:        make([]attachmentView, 0, len(n.Attachments)),
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          n.UpdatedAt,
	}
	for _, a := range n.Attachments {
		v.Attachments = append(v.Attachments, attachmentView{ID: a.ID, FileName: a.FileName, FileMime: a.FileMime})
	}
	return v
}

func newNoteViews(notes []store.Note) []noteView {
	out := make([]noteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, newNoteView(n))
	}
	return out
}

// userSummary is the directory listing shape. It leaves out signature data.
type userSummary struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	JobTitle       string    `json:"jobTitle"`
	DepartmentID   int64     `json:"departmentId"`
	DepartmentName string    `json:"departmentName"`
	Role           rbac.Role `json:"role"`
	SignatureType  string    `json:"signatureType"`
}

func newUserSummary(u store.User) userSummary {
	kind := string(u.Signature.Kind)
	if !u.Signature.Present() {
		kind = string(workflow.KindNone)
	}
	return userSummary{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		JobTitle:       u.JobTitle,
		DepartmentID:   u.DepartmentID,
		DepartmentName: u.DepartmentName,
		Role:           u.Role,
		SignatureType:  kind,
	}
}
