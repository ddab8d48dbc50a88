package store

import (
	"time"

	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/workflow"
)

// PlaceholderName marks a user whose real name has not been learned yet.
const PlaceholderName = "미등록 사용자"

type User struct {
	ID                 string             `json:"id"`
	AccountID          string             `json:"accountId"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	JobTitle           string             `json:"jobTitle"`
	DepartmentID       int64              `json:"departmentId"`
	DepartmentName     string             `json:"departmentName"`
	Role               rbac.Role          `json:"role"`
	Signature          workflow.Signature `json:"signature"`
	SignatureUpdatedAt *time.Time         `json:"signatureUpdatedAt,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func (u User) Subject() rbac.Subject {
	return rbac.Subject{UserID: u.ID, DepartmentID: u.DepartmentID, Role: u.Role}
}

func (u User) Participant() workflow.Participant {
	return workflow.Participant{Subject: u.Subject(), Signature: u.Signature}
}

// UserUpsert is the profile written when a user is first seen.
type UserUpsert struct {
	ID           string
	AccountID    string
	Email        string
	Name         string
	JobTitle     string
	DepartmentID int64
}

// ProfileUpdate changes only the non-nil fields. There is no role field.
type ProfileUpdate struct {
	AccountID    *string
	Email        *string
	Name         *string
	JobTitle     *string
	DepartmentID *int64
}

func (p ProfileUpdate) Empty() bool {
	return p.AccountID == nil && p.Email == nil && p.Name == nil && p.JobTitle == nil && p.DepartmentID == nil
}

type Note struct {
	ID                 int64
	WriterID           string
	WriterName         string
	WriterJobTitle     string
	WriterRole         rbac.Role
	WriterDepartmentID int64
	DepartmentName     string
	RecordDate         time.Time
	ReportYear         int
	ReportWeek         int
	SerialNo           string
	Title              string
	Content            string
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	WeeklyGoal         string
	Checker            workflow.SlotState
	CheckerName        string
	Reviewer           workflow.SlotState
	ReviewerName       string
	Attachments        []Attachment
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Policy returns the attributes the access policy decides on.
func (n Note) Policy() rbac.Note {
	return rbac.Note{
		WriterID:           n.WriterID,
		WriterDepartmentID: n.WriterDepartmentID,
		CheckerSigned:      n.Checker.Signed(),
	}
}

type Attachment struct {
	ID        int64
	NoteID    int64
	FileName  string
	FileMime  string
	FileSize  int64
	CreatedAt time.Time
}

type NewNote struct {
	WriterID    string
	RecordDate  time.Time
	ReportYear  int
	ReportWeek  int
	Title       string
	Content     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	WeeklyGoal  string
}

// Schedule holds the fields only an admin-mode edit may change.
type Schedule struct {
	RecordDate time.Time
	ReportYear int
	ReportWeek int
	SerialNo   string
}

type NoteUpdate struct {
	Title       string
	Content     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	WeeklyGoal  string
	Schedule    *Schedule
	// RequireUnlocked makes the update fail with rbac.ErrLocked if the
	// checker slot got signed in the meantime.
	RequireUnlocked bool
}

type SerialRecord struct {
	NoteID   int64
	SerialNo string
	WriterID string
}
