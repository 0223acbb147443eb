// Package client is the HTTP client of the students resource
// (/api/students). Every method maps to exactly one request and either
// returns the decoded server answer or one of two failures:
//
//   - *NetworkError   — the request never completed (DNS, refused, timeout);
//   - *RejectionError — the server answered with a non-2xx status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/students-console/internal/http/middleware"
	"github.com/aanand-mishra/students-console/internal/types"
)

// BasePath is where the students resource lives on the server.
const BasePath = "/api/students"

// NetworkError reports a request that never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RejectionError reports a non-2xx answer. Message is the server's own
// explanation when the body carried one, otherwise empty.
type RejectionError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// ServerMessage returns the message the server attached to err, if err
// is a rejection that carried one.
func ServerMessage(err error) (string, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) && rejection.Message != "" {
		return rejection.Message, true
	}
	return "", false
}

// Client talks to one students API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the API at baseURL (scheme://host[:port]).
// timeout bounds every request, including reading the body.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + BasePath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "students_client")),
	}
}

// List fetches the whole collection. GET /api/students
func (c *Client) List(ctx context.Context) ([]types.Student, error) {
	var students []types.Student
	err := c.do(ctx, "List", http.MethodGet, "", nil, nil, &students)
	return list(students, err)
}

// Search fetches students whose name contains query.
// GET /api/students/search?name=<query>
func (c *Client) Search(ctx context.Context, query string) ([]types.Student, error) {
	var students []types.Student
	params := url.Values{"name": {query}}
	err := c.do(ctx, "Search", http.MethodGet, "/search", params, nil, &students)
	return list(students, err)
}

// ByAgeRange fetches students whose age lies within the given bounds;
// a nil bound is omitted from the query.
// GET /api/students/age-range?minAge=<int>&maxAge=<int>
func (c *Client) ByAgeRange(ctx context.Context, minAge, maxAge *int) ([]types.Student, error) {
	var students []types.Student
	params := url.Values{}
	if minAge != nil {
		params.Set("minAge", strconv.Itoa(*minAge))
	}
	if maxAge != nil {
		params.Set("maxAge", strconv.Itoa(*maxAge))
	}
	err := c.do(ctx, "ByAgeRange", http.MethodGet, "/age-range", params, nil, &students)
	return list(students, err)
}

// Get fetches one student. GET /api/students/{id}
func (c *Client) Get(ctx context.Context, id int64) (types.Student, error) {
	var student types.Student
	err := c.do(ctx, "Get", http.MethodGet, "/"+strconv.FormatInt(id, 10), nil, nil, &student)
	return student, err
}

// Create posts a draft and returns the server's canonical record.
// POST /api/students
func (c *Client) Create(ctx context.Context, draft types.Draft) (types.Student, error) {
	var student types.Student
	err := c.do(ctx, "Create", http.MethodPost, "", nil, draft, &student)
	return student, err
}

// Update replaces a student and returns the server's canonical record.
// PUT /api/students/{id}
func (c *Client) Update(ctx context.Context, id int64, draft types.Draft) (types.Student, error) {
	var student types.Student
	err := c.do(ctx, "Update", http.MethodPut, "/"+strconv.FormatInt(id, 10), nil, draft, &student)
	return student, err
}

// Delete removes a student. DELETE /api/students/{id}
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "Delete", http.MethodDelete, "/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// do performs one request. body, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := c.logger.With(
		slog.String("op", op),
		slog.String("request_id", requestID),
	)
	logger.Debug("sending request", slog.String("method", method), slog.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("request failed", slog.String("error", err.Error()))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &RejectionError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    readMessage(resp.Body),
		}
		logger.Info("request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("message", rejection.Message),
		)
		return rejection
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &NetworkError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}

	return nil
}

// readMessage extracts the human-readable message of an error body:
// {"message": "..."} first, {"error": "..."} as a fallback.
func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}

// list normalises a decoded collection: nil on failure, never nil on success.
func list(students []types.Student, err error) ([]types.Student, error) {
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []types.Student{}
	}
	return students, nil
}
