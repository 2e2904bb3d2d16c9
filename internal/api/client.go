package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "PROTOSPACE_HTTP_TIMEOUT"
	apiTokenEnvKey     = "PROTOSPACE_API_TOKEN"
)

// Client is a simple HTTP client for the protospace JSON API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client. The bearer token defaults to
// PROTOSPACE_API_TOKEN.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.authToken = strings.TrimSpace(token)
	return &clone
}

// ImagePart is an image file attached to a prototype submission.
type ImagePart struct {
	Filename string
	Data     io.Reader
}

// PrototypeForm is a multipart prototype submission. Nil fields are omitted
// from the request.
type PrototypeForm struct {
	Title     *string
	CatchCopy *string
	Concept   *string
	Image     *ImagePart
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) IssueToken(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/token", nil, req, &resp)
	return resp, err
}

func (c *Client) Me(ctx context.Context) (MeResponse, error) {
	var resp MeResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListPrototypes(ctx context.Context) ([]Prototype, error) {
	var resp []Prototype
	err := c.do(ctx, http.MethodGet, "/v1/prototypes", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetPrototype(ctx context.Context, id string) (PrototypeDetail, error) {
	var resp PrototypeDetail
	err := c.do(ctx, http.MethodGet, "/v1/prototypes/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) GetUser(ctx context.Context, id string) (UserPage, error) {
	var resp UserPage
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) CreatePrototype(ctx context.Context, form PrototypeForm) (Prototype, error) {
	var resp Prototype
	err := c.doMultipart(ctx, http.MethodPost, "/v1/prototypes", form, &resp)
	return resp, err
}

func (c *Client) UpdatePrototype(ctx context.Context, id string, form PrototypeForm) (Prototype, error) {
	var resp Prototype
	err := c.doMultipart(ctx, http.MethodPatch, "/v1/prototypes/"+url.PathEscape(id), form, &resp)
	return resp, err
}

func (c *Client) DeletePrototype(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/prototypes/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) CreateComment(ctx context.Context, prototypeID string, req CommentCreateRequest) (PrototypeDetail, error) {
	var resp PrototypeDetail
	err := c.do(ctx, http.MethodPost, "/v1/prototypes/"+url.PathEscape(prototypeID)+"/comments", nil, req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, form PrototypeForm, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range map[string]*string{
		"title":      form.Title,
		"catch_copy": form.CatchCopy,
		"concept":    form.Concept,
	} {
		if value == nil {
			continue
		}
		if err := mw.WriteField(name, *value); err != nil {
			return err
		}
	}
	if form.Image != nil {
		part, err := mw.CreateFormFile("image", form.Image.Filename)
		if err != nil {
			return err
		}
		if form.Image.Data != nil {
			if _, err := io.Copy(part, form.Image.Data); err != nil {
				return err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:     resp.StatusCode,
			Code:       errResp.Code,
			ErrorCode:  errResp.ErrorCode,
			Message:    errResp.Error,
			Violations: errResp.Violations,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
