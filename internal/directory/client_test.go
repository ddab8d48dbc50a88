package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	tokenCalls atomic.Int32
	pages      map[string]string
}

func (f *fakeDirectory) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "account_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "acct", r.Form.Get("account_id"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/users/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v2/users/u1":
			_, _ = w.Write([]byte(`{"id":"u1","account_id":"acct","email":"kim@x.com","first_name":"Min","last_name":"Kim","dept":"R&D / Lab 2","custom_attributes":[{"key":"job_title","value":"Researcher"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/v2/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "300", r.URL.Query().Get("page_size"))
		_, _ = w.Write([]byte(f.pages[r.URL.Query().Get("next_page_token")]))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeDirectory) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		AccountID:    "acct",
		APIBase:      srv.URL + "/v2/",
		TokenURL:     srv.URL + "/oauth/token",
		Timeout:      time.Second,
	})
}

func TestGetUserMapsProfile(t *testing.T) {
	c := newTestClient(t, &fakeDirectory{})

	p, err := c.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Profile{
		ID: "u1", AccountID: "acct", Email: "kim@x.com",
		Name: "Min Kim", Department: "R&D", JobTitle: "Researcher",
	}, p)
}

func TestGetUserNotFound(t *testing.T) {
	c := newTestClient(t, &fakeDirectory{})

	_, err := c.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenIsCached(t *testing.T) {
	f := &fakeDirectory{}
	c := newTestClient(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetUser(ctx, "u1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.tokenCalls.Load())

	c.now = func() time.Time { return time.Now().Add(3590 * time.Second) }
	_, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load(), "token within the refresh window must be renewed")
}

func TestListUsersFollowsPages(t *testing.T) {
	f := &fakeDirectory{pages: map[string]string{
		"":   `{"users":[{"id":"a","email":"a@x.com","display_name":"A"}],"next_page_token":"p2"}`,
		"p2": `{"users":[{"id":"b","email":"b@x.com","name":"B","department":"Ops"}],"next_page_token":""}`,
	}}
	c := newTestClient(t, f)

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "A", users[0].Name)
	assert.Equal(t, "Ops", users[1].Department)
}

func TestNotConfigured(t *testing.T) {
	c := New(Config{APIBase: "http://127.0.0.1:1"})
	assert.False(t, c.Configured())
	_, err := c.GetUser(context.Background(), "u1")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestProfileFallbacks(t *testing.T) {
	cases := []struct {
		name string
		in   apiUser
		want Profile
	}{
		{"display name wins", apiUser{DisplayName: "D", FirstName: "F", Email: "e"}, Profile{Name: "D", Email: "e"}},
		{"email last", apiUser{Email: "e@x"}, Profile{Name: "e@x", Email: "e@x"}},
		{"title then custom", apiUser{Title: "Lead", CustomAttributes: []byte(`{"job_title":"X"}`)}, Profile{JobTitle: "Lead"}},
		{"custom object", apiUser{CustomAttributes: []byte(`{"title":"Head"}`)}, Profile{JobTitle: "Head"}},
		{"dept segments", apiUser{Dept: " / Bio/Cell"}, Profile{Department: "Bio"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.profile())
		})
	}
}
