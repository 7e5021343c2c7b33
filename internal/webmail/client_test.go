package webmail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body := map[string]interface{}{}
		_ = json.Unmarshal(data, &body)
		reqs = append(reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, "secret-token", WithRateLimit(0, 0))
	require.NoError(t, err)
	return c
}

func TestNewClient_ValidationErrors(t *testing.T) {
	_, err := NewClient("", "tok")
	assert.Error(t, err)

	_, err = NewClient("http://localhost", "  ")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestClient_Conversation_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"top_level", `{"conversation":[{"emailUniqueId":"a","threadId":"t1"},{"sendmail_id":"b","threadId":"t1"}]}`},
		{"nested_data", `{"data":{"conversation":[{"emailUniqueId":"a","threadId":"t1"},{"sendmail_id":"b","threadId":"t1"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := newTestServer(t, http.StatusOK, tt.response)
			c := newTestClient(t, srv.URL)

			msgs, err := c.Conversation(context.Background(), "box1", "t1")
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, Received("a"), msgs[0].Ref())
			assert.Equal(t, Sent("b"), msgs[1].Ref())

			require.Len(t, *reqs, 1)
			r := (*reqs)[0]
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/mails/conversation", r.Path)
			assert.Equal(t, "Bearer secret-token", r.Auth)
			assert.Equal(t, "box1", r.Body["mail_id"])
			assert.Equal(t, "t1", r.Body["threadId"])
		})
	}
}

func TestClient_AllMails_ArrayOrObject(t *testing.T) {
	for _, response := range []string{
		`[{"emailUniqueId":"m1"}]`,
		`{"emails":[{"emailUniqueId":"m1"}]}`,
	} {
		srv, _ := newTestServer(t, http.StatusOK, response)
		c := newTestClient(t, srv.URL)

		msgs, err := c.AllMails(context.Background(), "box1")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "m1", msgs[0].EmailUniqueID)
	}
}

func TestClient_UpdateEmail_UsesRefField(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.UpdateEmail(ctx, Received("r1"), FlagUpdate{IsStarred: Bool(true)}))
	require.NoError(t, c.UpdateEmail(ctx, Sent("s1"), FlagUpdate{IsArchived: Bool(false)}))

	require.Len(t, *reqs, 2)
	assert.Equal(t, map[string]interface{}{"emailUniqueId": "r1", "isStarred": true}, (*reqs)[0].Body)
	assert.Equal(t, map[string]interface{}{"sendmail_id": "s1", "isArchived": false}, (*reqs)[1].Body)
}

func TestClient_UpdateEmail_RejectsBeforeRequest(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	assert.ErrorIs(t, c.UpdateEmail(ctx, MessageRef{}, FlagUpdate{IsRead: Bool(true)}), ErrInvalidRef)
	assert.Error(t, c.UpdateEmail(ctx, Received("r1"), FlagUpdate{}))
	assert.Empty(t, *reqs)
}

func TestClient_SentMails_Body(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `[{"sendmail_id":"s1","status":"draft"}]`)
	c := newTestClient(t, srv.URL)

	msgs, err := c.SentMails(context.Background(), "box1", StatusDraft)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, StatusDraft, msgs[0].Status)
	assert.Equal(t, "box1", (*reqs)[0].Body["mail_Id"])
	assert.Equal(t, "draft", (*reqs)[0].Body["status"])
}

func TestClient_EmailsByLabel_SendMails(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"sendMails":[{"sendmail_id":"s1"}]}`)
	c := newTestClient(t, srv.URL)

	msgs, err := c.EmailsByLabel(context.Background(), "lbl1", true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, (*reqs)[0].Body["forSendMail"])
	assert.Equal(t, "lbl1", (*reqs)[0].Body["labelUniqueId"])
}

func TestClient_LabelAssignment(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.AssignLabel(ctx, Sent("s1"), "lbl1"))
	require.NoError(t, c.RemoveLabel(ctx, Received("r1"), "lbl1"))

	assert.Equal(t, "/email/assignLabelsToEmail", (*reqs)[0].Path)
	assert.Equal(t, "s1", (*reqs)[0].Body["sendmail_id"])
	assert.Equal(t, "/email/removeLabelsFromEmail", (*reqs)[1].Path)
	assert.Equal(t, "r1", (*reqs)[1].Body["emailUniqueId"])
}

func TestClient_DeleteEmail_ReceivedOnly(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteEmail(ctx, Sent("s1")), ErrInvalidRef)
	require.NoError(t, c.DeleteEmail(ctx, Received("r1")))
	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodDelete, (*reqs)[0].Method)
	assert.Equal(t, "r1", (*reqs)[0].Body["emailUniqueId"])
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		sentinel error
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, ErrUnauthorized, "token expired"},
		{"not_found", http.StatusNotFound, `{"error":"no such thread"}`, ErrNotFound, "no such thread"},
		{"server_error", http.StatusInternalServerError, `boom`, nil, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.response)
			c := newTestClient(t, srv.URL)

			_, err := c.Conversation(context.Background(), "box1", "t1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Contains(t, err.Error(), tt.message)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestClient_CreateLabel_EchoesOnAck(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"message":"created"}`)
	c := newTestClient(t, srv.URL)

	label, err := c.CreateLabel(context.Background(), "box1", NewLabel{Name: "Work", Color: "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, "Work", label.Name)
	assert.Equal(t, "#ff0000", label.Color)
	assert.Empty(t, label.ID)
}

func TestClient_CreateLabel_MalformedResponse(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `<html>gateway</html>`)
	c := newTestClient(t, srv.URL)

	_, err := c.CreateLabel(context.Background(), "box1", NewLabel{Name: "Work"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding created label")
}

func TestClient_CreateLabel_ReturnsServerLabel(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"label":{"labelUniqueId":"l9","name":"Work"}}`)
	c := newTestClient(t, srv.URL)

	label, err := c.CreateLabel(context.Background(), "box1", NewLabel{Name: "Work"})
	require.NoError(t, err)
	assert.Equal(t, "l9", label.ID)
}
