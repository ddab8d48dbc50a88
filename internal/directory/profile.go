package directory

import (
	"encoding/json"
	"strings"
)

// Profile is the subset of a directory user this service stores.
type Profile struct {
	ID         string
	AccountID  string
	Email      string
	Name       string
	Department string
	JobTitle   string
}

type apiUser struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	Email            string          `json:"email"`
	DisplayName      string          `json:"display_name"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Name             string          `json:"name"`
	Dept             string          `json:"dept"`
	Department       string          `json:"department"`
	JobTitle         string          `json:"job_title"`
	Title            string          `json:"title"`
	CustomAttributes json.RawMessage `json:"custom_attributes"`
}

func (u apiUser) profile() Profile {
	dept := u.Dept
	if dept == "" {
		dept = u.Department
	}
	return Profile{
		ID:         u.ID,
		AccountID:  u.AccountID,
		Email:      u.Email,
		Name:       u.displayName(),
		Department: NormalizeDepartment(dept),
		JobTitle:   u.jobTitle(),
	}
}

func (u apiUser) displayName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName)); full != "" {
		return full
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

func (u apiUser) jobTitle() string {
	if u.JobTitle != "" {
		return u.JobTitle
	}
	if u.Title != "" {
		return u.Title
	}
	return customTitle(u.CustomAttributes)
}

// customTitle reads job_title or title from custom_attributes, which the
// directory sends either as an object or as a list of key/value pairs.
func customTitle(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"job_title", "title"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	var list []struct {
		Key   string `json:"key"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return ""
	}
	for _, attr := range list {
		k := strings.ToLower(attr.Key)
		if k == "" {
			k = strings.ToLower(attr.Name)
		}
		if (k == "job_title" || k == "title") && attr.Value != "" {
			return attr.Value
		}
	}
	return ""
}

// NormalizeDepartment keeps the first non-empty "/"-separated segment.
func NormalizeDepartment(raw string) string {
	for _, part := range strings.Split(raw, "/") {
		if part = strings.TrimSpace(part); part != "" {
			return part
		}
	}
	return ""
}
