package openlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/common/config"
	"github.com/coachpo/swiperflix-gateway/pkg/common/logger"
	"github.com/coachpo/swiperflix-gateway/pkg/gateway/httpclient"
)

var ErrUnauthorized = errors.New("openlist: unauthorized")

const (
	retryAttempts = 3
	retryDelay    = 200 * time.Millisecond
	maxPages      = 10000
)

// APIError is a well-formed OpenList response whose envelope code is not 200.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openlist: code %d: %s", e.Code, e.Message)
}

// Entry is one file found in the listing.
type Entry struct {
	Path     string
	Name     string
	Size     int64
	Modified *time.Time
	Thumb    string
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	Refresh  bool   `json:"refresh"`
}

type listData struct {
	Content []rawEntry `json:"content"`
	Total   int        `json:"total"`
}

type rawEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	IsDir    bool   `json:"is_dir"`
	Modified string `json:"modified"`
	Thumb    string `json:"thumb"`
}

type getRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
}

type getData struct {
	RawURL string `json:"raw_url"`
}

type Client struct {
	cfg     config.OpenList
	baseURL string
	http    *http.Client
	auth    *authenticator
}

// NewClient builds a client for cfg. ctx bounds token acquisition for the
// lifetime of the client.
func NewClient(ctx context.Context, cfg config.OpenList) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 200
	}
	hc := httpclient.New(timeout)
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		auth:    newAuthenticator(ctx, cfg, hc),
	}
}

// FileURL returns the direct URL stored for a listing path.
func (c *Client) FileURL(p string) string {
	return c.cfg.BuildFileURL(p)
}

// List enumerates the files under dir, descending into sub-directories when
// the client is configured as recursive. Directories themselves are never
// returned.
func (c *Client) List(ctx context.Context, dir string) ([]Entry, error) {
	if dir == "" {
		dir = c.cfg.DirPath
	}
	dir = path.Clean("/" + dir)

	var out []Entry
	pending := []string{dir}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]

		entries, subdirs, err := c.listDir(ctx, current)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
		if c.cfg.Recursive {
			pending = append(pending, subdirs...)
		}
	}
	return out, nil
}

func (c *Client) listDir(ctx context.Context, dir string) ([]Entry, []string, error) {
	var (
		entries []Entry
		subdirs []string
		seen    int
	)
	for page := 1; page <= maxPages; page++ {
		var data listData
		req := listRequest{Path: dir, Password: c.cfg.Password, Page: page, PerPage: c.cfg.PerPage}
		if err := c.call(ctx, "/api/fs/list", req, &data); err != nil {
			return nil, nil, fmt.Errorf("list %s: %w", dir, err)
		}

		for _, raw := range data.Content {
			if raw.Name == "" {
				continue
			}
			full := path.Join(dir, raw.Name)
			if raw.IsDir {
				subdirs = append(subdirs, full)
				continue
			}
			entries = append(entries, Entry{
				Path:     full,
				Name:     raw.Name,
				Size:     raw.Size,
				Modified: parseModified(raw.Modified),
				Thumb:    raw.Thumb,
			})
		}

		seen += len(data.Content)
		if len(data.Content) == 0 || seen >= data.Total {
			break
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"dir":     dir,
		"files":   len(entries),
		"subdirs": len(subdirs),
	}).Debug("openlist directory listed")
	return entries, subdirs, nil
}

// RawURL asks OpenList for a playable link to the file at p.
func (c *Client) RawURL(ctx context.Context, p string) (string, error) {
	var data getData
	if err := c.call(ctx, "/api/fs/get", getRequest{Path: p, Password: c.cfg.Password}, &data); err != nil {
		return "", fmt.Errorf("get %s: %w", p, err)
	}
	if data.RawURL == "" {
		return "", fmt.Errorf("get %s: empty raw_url", p)
	}
	return data.RawURL, nil
}

// call posts body to endpoint. An unauthorized answer triggers one retry
// after a login exchange when credentials are configured.
func (c *Client) call(ctx context.Context, endpoint string, body, out interface{}) error {
	err := c.callWithRetry(ctx, endpoint, body, out)
	if errors.Is(err, ErrUnauthorized) && c.auth.renew() {
		logger.Log.WithField("endpoint", endpoint).Info("openlist rejected request, logging in")
		err = c.callWithRetry(ctx, endpoint, body, out)
	}
	return err
}

func (c *Client) callWithRetry(ctx context.Context, endpoint string, body, out interface{}) error {
	return httpclient.Retry(ctx, retryAttempts, retryDelay, func() error {
		return c.callOnce(ctx, endpoint, body, out)
	})
}

func (c *Client) callOnce(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.auth.apply(req); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeEnvelope(req, resp, out)
}

func decodeEnvelope(req *http.Request, resp *http.Response, out interface{}) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &httpclient.StatusError{Method: req.Method, URL: req.URL.Path, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	switch {
	case env.Code == http.StatusUnauthorized || env.Code == http.StatusForbidden:
		return ErrUnauthorized
	case env.Code != http.StatusOK:
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("malformed data: %w", err)
	}
	return nil
}

func parseModified(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() || t.Year() <= 1 {
		return nil
	}
	t = t.UTC().Truncate(time.Microsecond)
	return &t
}
