// Package client is the consumer side of the avisos API: a REST client and
// a connection manager that keeps an announcement's comment list live over
// the real-time stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

const apiPrefix = "/api/v1"

// Comment is the comment representation returned by the REST API. Raw holds
// the exact response body for a created comment so it can be echoed
// verbatim on the real-time channel.
type Comment struct {
	domain.CommentSnapshot
	AnnouncementTitle string `json:"announcement_title,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// User is the account returned by login.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.StatusCode))
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// ListOptions filters the comment search.
type ListOptions struct {
	AnnouncementID int64
	AuthorID       int64
	Author         string
	From           string // YYYY-MM-DD
	To             string // YYYY-MM-DD, inclusive
	Page           int
	Limit          int
}

// Page is one page of the comment search.
type Page struct {
	Data       []Comment `json:"data"`
	Pagination struct {
		Limit      int   `json:"limit"`
		Offset     int   `json:"offset"`
		Page       int   `json:"page"`
		TotalCount int64 `json:"total_count"`
		HasMore    bool  `json:"has_more"`
	} `json:"pagination"`
}

// APIClient talks to the avisos REST API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the server at baseURL. token may be
// empty until SetToken is called.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token used for subsequent requests.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

// StreamURL returns the websocket URL of the comments stream served next
// to the API.
func (c *APIClient) StreamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = "/comments"
	u.RawQuery = ""
	return u.String(), nil
}

// Login exchanges credentials for a session and keeps its token.
func (c *APIClient) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session Session
	if _, err := c.send(ctx, http.MethodPost, "/auth/login", body, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

// ListForAnnouncement returns every comment of an announcement, newest first.
func (c *APIClient) ListForAnnouncement(ctx context.Context, announcementID int64) ([]Comment, error) {
	var resp struct {
		Data []Comment `json:"data"`
	}
	path := fmt.Sprintf("/comments/announcement/%d", announcementID)
	if _, err := c.send(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListComments runs the filtered comment search.
func (c *APIClient) ListComments(ctx context.Context, opts ListOptions) (*Page, error) {
	q := url.Values{}
	if opts.AnnouncementID > 0 {
		q.Set("announcement_id", fmt.Sprint(opts.AnnouncementID))
	}
	if opts.AuthorID > 0 {
		q.Set("author_id", fmt.Sprint(opts.AuthorID))
	}
	if opts.Author != "" {
		q.Set("author", opts.Author)
	}
	if opts.From != "" {
		q.Set("from", opts.From)
	}
	if opts.To != "" {
		q.Set("to", opts.To)
	}
	if opts.Page > 0 {
		q.Set("page", fmt.Sprint(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprint(opts.Limit))
	}

	path := "/comments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page Page
	if _, err := c.send(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateComment posts a comment on an announcement.
func (c *APIClient) CreateComment(ctx context.Context, announcementID int64, body string) (*Comment, error) {
	req := map[string]any{"announcement_id": announcementID, "body": body}
	var comment Comment
	raw, err := c.send(ctx, http.MethodPost, "/comments", req, &comment)
	if err != nil {
		return nil, err
	}
	comment.Raw = raw
	return &comment, nil
}

// send performs a request against the API and decodes a JSON response into
// result. The raw response body is returned alongside.
func (c *APIClient) send(ctx context.Context, method, path string, body, result any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Message = errResp.Error
			apiErr.Code = errResp.Code
		}
		return nil, apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}
	return respBody, nil
}
