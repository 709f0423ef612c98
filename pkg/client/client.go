// Package client is a Go client for the socialfeed REST API.
//
// Credentials are passed explicitly to every mutating call; the client keeps
// no ambient auth state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jupiterclapton/socialfeed/pkg/api"
)

const DefaultTimeout = 15 * time.Second

// Credentials identifie l'appelant. Token est le bearer retourné par Login.
type Credentials struct {
	Token    string
	Username string
}

func (c Credentials) Valid() bool { return c.Token != "" }

// APIError est une réponse non-2xx du serveur.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

var ErrNoCredentials = errors.New("client: credentials required")

// IsStatus indique si err est une APIError avec ce statut.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New construit un client. baseURL : "http://localhost:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// --- AUTH ---

func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	var out api.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", Credentials{}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	var out api.AuthResponse
	req := api.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", Credentials{}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- FEED ---

func (c *Client) ListPosts(ctx context.Context, page, limit int) ([]api.Post, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out []api.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts?"+q.Encode(), Credentials{}, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []api.Post{}
	}
	return out, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (*api.Post, error) {
	var out api.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID), Credentials{}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- MUTATIONS ---

func (c *Client) AddComment(ctx context.Context, creds Credentials, postID, text string) (*api.CommentsResponse, error) {
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}
	var out api.CommentsResponse
	path := "/api/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.doJSON(ctx, http.MethodPost, path, creds, api.CommentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetLike(ctx context.Context, creds Credentials, postID string, liked bool) (*api.LikeResponse, error) {
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}
	var out api.LikeResponse
	path := "/api/posts/" + url.PathEscape(postID) + "/like"
	if err := c.doJSON(ctx, http.MethodPut, path, creds, api.LikeRequest{Liked: &liked}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- TRANSPORT ---

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) doJSON(ctx context.Context, method, path string, creds Credentials, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, creds, out)
}

func (c *Client) do(req *http.Request, creds Credentials, out any) error {
	req.Header.Set("Accept", "application/json")
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}
