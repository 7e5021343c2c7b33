package webmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client is a thin HTTP client for the webmail REST backend.
// Every request carries the account's bearer token; requests are paced
// client-side and never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-request timeout (default 30s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests; rps <= 0 disables pacing
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request tracing
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for baseURL authenticating with the opaque bearer token
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrEmptyToken
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Conversation returns every message of a thread (POST /mails/conversation)
func (c *Client) Conversation(ctx context.Context, mailboxID, threadID string) ([]*Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("threadID cannot be empty")
	}
	body := map[string]interface{}{"mail_id": mailboxID, "threadId": threadID}
	raw, err := c.do(ctx, http.MethodPost, "/mails/conversation", body)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(raw, "conversation")
	if err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", threadID, err)
	}
	return msgs, nil
}

// UpdateEmail applies flag changes to one message (POST /email/updateEmail)
func (c *Client) UpdateEmail(ctx context.Context, ref MessageRef, update FlagUpdate) error {
	if !ref.Valid() {
		return ErrInvalidRef
	}
	if update.Empty() {
		return fmt.Errorf("update for %s changes nothing", ref)
	}
	body := ref.Body()
	for k, v := range update.fields() {
		body[k] = v
	}
	_, err := c.do(ctx, http.MethodPost, "/email/updateEmail", body)
	return err
}

// AllMails returns the received mailbox list (POST /email/allmails)
func (c *Client) AllMails(ctx context.Context, mailboxID string) ([]*Message, error) {
	raw, err := c.do(ctx, http.MethodPost, "/email/allmails", map[string]interface{}{"mail_id": mailboxID})
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(raw, "emails")
	if err != nil {
		return nil, fmt.Errorf("decode mailbox %s: %w", mailboxID, err)
	}
	return msgs, nil
}

// SentMails returns sent, draft or scheduled mail (POST /mails/get-sendmail)
func (c *Client) SentMails(ctx context.Context, mailboxID string, status SendStatus) ([]*Message, error) {
	body := map[string]interface{}{"mail_Id": mailboxID, "status": string(status)}
	raw, err := c.do(ctx, http.MethodPost, "/mails/get-sendmail", body)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(raw, "sendMails", "emails")
	if err != nil {
		return nil, fmt.Errorf("decode %s list: %w", status, err)
	}
	return msgs, nil
}

// SendMail sends or stores outgoing mail (POST /mails/send-mail)
func (c *Client) SendMail(ctx context.Context, mail OutgoingMail) error {
	if len(mail.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	_, err := c.do(ctx, http.MethodPost, "/mails/send-mail", mail)
	return err
}

// Labels lists the mailbox's labels (POST /label/getLabels)
func (c *Client) Labels(ctx context.Context, mailboxID string) ([]*Label, error) {
	raw, err := c.do(ctx, http.MethodPost, "/label/getLabels", map[string]interface{}{"mail_id": mailboxID})
	if err != nil {
		return nil, err
	}
	return decodeLabels(raw)
}

// CreateLabel creates a label (POST /label/createLabel)
func (c *Client) CreateLabel(ctx context.Context, mailboxID string, l NewLabel) (*Label, error) {
	body := map[string]interface{}{
		"mail_id":           mailboxID,
		"name":              l.Name,
		"color":             l.Color,
		"isVisible":         l.IsVisible,
		"showIfUnread":      l.ShowIfUnread,
		"showInMessageList": l.ShowInMessageList,
	}
	raw, err := c.do(ctx, http.MethodPost, "/label/createLabel", body)
	if err != nil {
		return nil, err
	}
	created := &Label{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := decodeObject(raw, created, "label", "data"); err != nil {
			return nil, fmt.Errorf("decoding created label: %w", err)
		}
	}
	if created.ID == "" {
		// Ack-only deployments: echo what was sent, the caller resolves the id
		return &Label{Name: l.Name, Color: l.Color, IsVisible: l.IsVisible, ShowIfUnread: l.ShowIfUnread, ShowInMessageList: l.ShowInMessageList}, nil
	}
	return created, nil
}

// EmailLabels returns the labels assigned to one message (POST /email/getEmailLabels)
func (c *Client) EmailLabels(ctx context.Context, ref MessageRef) ([]*Label, error) {
	if !ref.Valid() {
		return nil, ErrInvalidRef
	}
	raw, err := c.do(ctx, http.MethodPost, "/email/getEmailLabels", ref.Body())
	if err != nil {
		return nil, err
	}
	return decodeLabels(raw)
}

// AssignLabel attaches a label to a message (POST /email/assignLabelsToEmail)
func (c *Client) AssignLabel(ctx context.Context, ref MessageRef, labelID string) error {
	return c.labelAssignment(ctx, "/email/assignLabelsToEmail", ref, labelID)
}

// RemoveLabel detaches a label from a message (POST /email/removeLabelsFromEmail)
func (c *Client) RemoveLabel(ctx context.Context, ref MessageRef, labelID string) error {
	return c.labelAssignment(ctx, "/email/removeLabelsFromEmail", ref, labelID)
}

func (c *Client) labelAssignment(ctx context.Context, path string, ref MessageRef, labelID string) error {
	if !ref.Valid() {
		return ErrInvalidRef
	}
	if strings.TrimSpace(labelID) == "" {
		return fmt.Errorf("labelID cannot be empty")
	}
	body := ref.Body()
	body["labelUniqueId"] = labelID
	_, err := c.do(ctx, http.MethodPost, path, body)
	return err
}

// EmailsByLabel lists messages carrying a label (POST /email/getEmailsByLabel)
func (c *Client) EmailsByLabel(ctx context.Context, labelID string, forSendMail bool) ([]*Message, error) {
	body := map[string]interface{}{"labelUniqueId": labelID}
	if forSendMail {
		body["forSendMail"] = true
	}
	raw, err := c.do(ctx, http.MethodPost, "/email/getEmailsByLabel", body)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeMessages(raw, "emails", "sendMails")
	if err != nil {
		return nil, fmt.Errorf("decode label %s messages: %w", labelID, err)
	}
	return msgs, nil
}

// DeleteEmail permanently deletes a received message (DELETE /email/deleteEmail)
func (c *Client) DeleteEmail(ctx context.Context, ref MessageRef) error {
	if !ref.Valid() || ref.Kind != RefReceived {
		return ErrInvalidRef
	}
	_, err := c.do(ctx, http.MethodDelete, "/email/deleteEmail", ref.Body())
	return err
}

// do builds the request, paces it, and returns the raw response body on 2xx
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if c.logger != nil {
		c.logger.Printf("webmail: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: errorMessage(respBody),
		}
	}
	return respBody, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// decodeMessages accepts a bare array, an object holding the array under one of keys,
// or the same object nested under "data"
func decodeMessages(raw []byte, keys ...string) ([]*Message, error) {
	var msgs []*Message
	if err := decodeList(raw, &msgs, keys...); err != nil {
		return nil, err
	}
	out := msgs[:0]
	for _, m := range msgs {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func decodeLabels(raw []byte) ([]*Label, error) {
	var labels []*Label
	if err := decodeList(raw, &labels, "labels", "data"); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return labels, nil
}

func decodeList(raw []byte, dst interface{}, keys ...string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dst)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			return decodeList(v, dst, keys...)
		}
	}
	if nested, ok := obj["data"]; ok {
		return decodeList(nested, dst, keys...)
	}
	return nil
}

func decodeObject(raw []byte, dst interface{}, keys ...string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok && len(v) > 0 && v[0] == '{' {
			return json.Unmarshal(v, dst)
		}
	}
	return json.Unmarshal(raw, dst)
}
