package openlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coachpo/swiperflix-gateway/pkg/common/config"
	"golang.org/x/oauth2"
)

// loginSource exchanges a username/password pair for an OpenList session
// token. It is always wrapped in oauth2.ReuseTokenSource so the exchange only
// happens when the cached token has expired.
type loginSource struct {
	ctx      context.Context
	client   *http.Client
	baseURL  string
	username string
	password string
	ttl      time.Duration
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

func (s *loginSource) Token() (*oauth2.Token, error) {
	body, err := json.Marshal(loginRequest{Username: s.username, Password: s.password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openlist login: %w", err)
	}
	defer resp.Body.Close()

	var data loginData
	if err := decodeEnvelope(req, resp, &data); err != nil {
		return nil, fmt.Errorf("openlist login: %w", err)
	}
	if strings.TrimSpace(data.Token) == "" {
		return nil, fmt.Errorf("openlist login: empty token")
	}
	return &oauth2.Token{
		AccessToken: data.Token,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(s.ttl),
	}, nil
}

// authenticator decides which bearer token, if any, goes on a request.
// With a static token it always sends it. With credentials it starts
// anonymous and switches to login tokens after the first rejection.
type authenticator struct {
	mu       sync.Mutex
	static   oauth2.TokenSource
	newLogin func() oauth2.TokenSource
	login    oauth2.TokenSource
}

func newAuthenticator(ctx context.Context, cfg config.OpenList, client *http.Client) *authenticator {
	a := &authenticator{}
	if cfg.Token != "" {
		a.static = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		return a
	}
	if cfg.HasCredentials() {
		ttl := cfg.TokenTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		a.newLogin = func() oauth2.TokenSource {
			return oauth2.ReuseTokenSource(nil, &loginSource{
				ctx:      ctx,
				client:   client,
				baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
				username: cfg.Username,
				password: cfg.UserPassword,
				ttl:      ttl,
			})
		}
	}
	return a
}

// source returns the token source for the next request, or nil for an
// anonymous request.
func (a *authenticator) source() oauth2.TokenSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.static != nil {
		return a.static
	}
	return a.login
}

// renew reacts to an unauthorized response. It reports whether a retry
// with a fresh login token is worth attempting.
func (a *authenticator) renew() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.newLogin == nil {
		return false
	}
	a.login = a.newLogin()
	return true
}

func (a *authenticator) apply(req *http.Request) error {
	src := a.source()
	if src == nil {
		return nil
	}
	token, err := src.Token()
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	return nil
}
