package auth

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Claims is the loosely typed identity object carried by a context token.
// Accessors accept the alternate key spellings seen in the wild.
type Claims map[string]any

var (
	userIDKeys      = []string{"uid", "userId", "user_id", "userUUID", "id", "creatorId", "participantId", "participantUUID"}
	emailKeys       = []string{"email", "userEmail", "user_email", "emailAddress"}
	accountIDKeys   = []string{"accountId", "account_id", "aid", "acctId", "zoom_account_id"}
	displayNameKeys = []string{"displayName", "name", "userName"}
	departmentKeys  = []string{"dept", "department"}
	jobTitleKeys    = []string{"job_title", "jobTitle", "title"}
)

func (c Claims) UserID() string      { return c.first(userIDKeys) }
func (c Claims) Email() string       { return c.first(emailKeys) }
func (c Claims) AccountID() string   { return c.first(accountIDKeys) }
func (c Claims) DisplayName() string { return c.first(displayNameKeys) }
func (c Claims) Department() string  { return c.first(departmentKeys) }
func (c Claims) JobTitle() string    { return c.first(jobTitleKeys) }

func (c Claims) Empty() bool { return len(c) == 0 }

// String returns the value under key as a trimmed string. Numbers are
// formatted without exponent; other types yield "".
func (c Claims) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (c Claims) first(keys []string) string {
	for _, k := range keys {
		if v := c.String(k); v != "" {
			return v
		}
	}
	return ""
}

// merge returns a copy of c with every key of over applied on top.
func (c Claims) merge(over Claims) Claims {
	out := make(Claims, len(c)+len(over))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
