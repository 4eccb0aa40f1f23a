package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task"
	taskentity "github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
)

// ErrUnauthenticated is returned after the server rejected the token. The
// session has already been cleared; the caller should log in again.
var ErrUnauthenticated = errors.New("client: not authenticated")

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  []validation.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("api %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Client calls the task tracker API on behalf of a Session.
type Client struct {
	baseURL string
	hc      *http.Client
	session *Session
}

// New returns a client for baseURL (e.g. "http://localhost:8431/api").
// hc may be nil.
func New(baseURL string, session *Session, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), hc: hc, session: session}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	token := c.session.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.invalidate(token)
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Message string                  `json:"message"`
		Errors  []validation.FieldError `json:"errors"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, &body); err != nil || (body.Message == "" && len(body.Errors) == 0) {
		body.Message = strings.TrimSpace(string(b))
		if body.Message == "" {
			body.Message = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message, Fields: body.Errors}
}

func (c *Client) authenticate(ctx context.Context, path string, in any) error {
	var out auth.TokenResponse
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return err
	}
	return c.session.Set(out.Token)
}

// Register creates an identity and starts a session for it.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) error {
	return c.authenticate(ctx, "/auth/register", req)
}

func (c *Client) Login(ctx context.Context, login, password string) error {
	return c.authenticate(ctx, "/auth/login", auth.LoginRequest{Login: login, Password: password})
}

// Logout revokes the token server-side and clears the session. The local
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.session.Token() != "" {
		err = c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
		if errors.Is(err, ErrUnauthenticated) {
			err = nil
		}
	}
	if cerr := c.session.Clear(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*auth.MeView, error) {
	var out auth.MeView
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Managers lists identities a new account may register under.
func (c *Client) Managers(ctx context.Context) ([]entity.Profile, error) {
	var out []entity.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/managers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) User(ctx context.Context, id int64) (*entity.Profile, error) {
	var out entity.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/users/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subordinates lists identities managed by the session identity.
func (c *Client) Subordinates(ctx context.Context) ([]entity.Profile, error) {
	var out []entity.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/subordinates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]taskentity.Task, error) {
	var out []taskentity.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, req task.Request) (*taskentity.Task, error) {
	var out task.Response
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req task.Request) (*taskentity.Task, error) {
	var out task.Response
	if err := c.do(ctx, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10), req, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}
