package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client makes REST calls to the Study Buddy backend. Transient failures
// are retried exactly once after a fixed delay; definitive rejections are
// returned as typed *Error values for the mutation controller to act on.
type Client struct {
	baseURL    string
	token      string
	client     *http.Client
	retryDelay time.Duration
	sleep      func(time.Duration) // replaceable in tests
}

// NewClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL, token string, retryDelay time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		client:     &http.Client{Timeout: 10 * time.Second},
		retryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

// FetchSessions fetches /api/sessions, optionally narrowed by filter.
func (c *Client) FetchSessions(filter SessionFilter) ([]Session, error) {
	path := "/api/sessions"
	q := url.Values{}
	if filter.From != "" {
		q.Set("from", filter.From)
	}
	if filter.To != "" {
		q.Set("to", filter.To)
	}
	if filter.Course != "" {
		q.Set("course", filter.Course)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Session
	if err := c.get("fetch sessions", path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession sends POST /api/sessions. Required fields are validated
// locally; a draft missing them never reaches the wire.
func (c *Client) CreateSession(draft SessionDraft) (*Session, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}
	var out Session
	if err := c.post("create session", "/api/sessions", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateDraft checks the locally-required session fields.
func ValidateDraft(draft SessionDraft) error {
	missing := ""
	switch {
	case draft.Title == "":
		missing = "title"
	case draft.Date == "":
		missing = "date"
	case draft.StartTime == "":
		missing = "start time"
	case draft.EndTime == "":
		missing = "end time"
	}
	if missing != "" {
		return &Error{Op: "create session", Kind: KindValidation, Msg: missing + " is required"}
	}
	return nil
}

// AttendSession sends POST /api/sessions/{id}/attend.
func (c *Client) AttendSession(id string) error {
	return c.post("attend session", "/api/sessions/"+id+"/attend", nil, nil)
}

// LeaveSession sends POST /api/sessions/{id}/leave.
func (c *Client) LeaveSession(id string) error {
	return c.post("leave session", "/api/sessions/"+id+"/leave", nil, nil)
}

// CancelSession sends DELETE /api/sessions/{id}.
func (c *Client) CancelSession(id string) error {
	return c.do("cancel session", http.MethodDelete, "/api/sessions/"+id, nil, nil)
}

// SearchPartners fetches /api/partners.
func (c *Client) SearchPartners() ([]Partner, error) {
	var out []Partner
	if err := c.get("search partners", "/api/partners", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendBuddyRequest sends POST /api/partners/{id}/request.
func (c *Client) SendBuddyRequest(partnerID string) error {
	return c.post("send buddy request", "/api/partners/"+partnerID+"/request", nil, nil)
}

// AcceptPartnerRequest sends POST /api/requests/{id}/accept.
func (c *Client) AcceptPartnerRequest(requestID string) error {
	return c.post("accept partner request", "/api/requests/"+requestID+"/accept", nil, nil)
}

// RejectPartnerRequest sends POST /api/requests/{id}/reject.
func (c *Client) RejectPartnerRequest(requestID string) error {
	return c.post("reject partner request", "/api/requests/"+requestID+"/reject", nil, nil)
}

// FetchNotifications fetches /api/notifications.
func (c *Client) FetchNotifications() ([]Notification, error) {
	var out []Notification
	if err := c.get("fetch notifications", "/api/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead sends POST /api/notifications/{id}/read.
func (c *Client) MarkNotificationRead(id string) error {
	return c.post("mark notification read", "/api/notifications/"+id+"/read", nil, nil)
}

// FetchNotes fetches /api/notes.
func (c *Client) FetchNotes() ([]Note, error) {
	var out []Note
	if err := c.get("fetch notes", "/api/notes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNote sends POST /api/notes.
func (c *Client) CreateNote(draft NoteDraft) (*Note, error) {
	if draft.Body == "" {
		return nil, &Error{Op: "create note", Kind: KindValidation, Msg: "body is required"}
	}
	var out Note
	if err := c.post("create note", "/api/notes", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote sends DELETE /api/notes/{id}.
func (c *Client) DeleteNote(id string) error {
	return c.do("delete note", http.MethodDelete, "/api/notes/"+id, nil, nil)
}

func (c *Client) get(op, path string, out interface{}) error {
	return c.do(op, http.MethodGet, path, nil, out)
}

func (c *Client) post(op, path string, body, out interface{}) error {
	return c.do(op, http.MethodPost, path, body, out)
}

// do performs the request, retrying once after retryDelay when the first
// attempt fails transiently.
func (c *Client) do(op, method, path string, body, out interface{}) error {
	err := c.doOnce(op, method, path, body, out)
	if err != nil && Retryable(err) {
		c.sleep(c.retryDelay)
		err = c.doOnce(op, method, path, body, out)
	}
	return err
}

func (c *Client) doOnce(op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransient, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &Error{
			Op:     op,
			Kind:   classifyStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Msg:    string(respBody),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, Kind: KindUnknown, Msg: "decode response: " + err.Error()}
		}
	}
	return nil
}
