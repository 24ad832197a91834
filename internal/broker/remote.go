package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	"tradesim/internal/model"
)

// RemoteConfig configures the HTTP broker gateway client.
type RemoteConfig struct {
	BaseURL    string
	AccountID  string
	APIKey     string
	TOTPSecret string        // base32 secret for two-factor session login
	Timeout    time.Duration // default 7s
}

// Remote is a client for an HTTP broker gateway. Sessions are opened with a
// TOTP two-factor login; a 401 mid-session triggers one re-login before the
// request is retried.
type Remote struct {
	cfg        RemoteConfig
	httpClient *http.Client
	token      string

	// SessionExpiryHook, if set, is called when a re-login also fails.
	SessionExpiryHook func()
}

var routes = map[string]string{
	"session": "/api/v1/session",
	"orders":  "/api/v1/orders",
	"account": "/api/v1/account",
}

// NewRemote creates the gateway client. Login is lazy: the first request
// opens the session.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Remote{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Login opens a session using the account id, API key, and a fresh TOTP code.
func (r *Remote) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(r.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("totp: %w", err)
	}

	body, err := r.do(ctx, http.MethodPost, routes["session"], map[string]any{
		"account_id": r.cfg.AccountID,
		"api_key":    r.cfg.APIKey,
		"totp":       code,
	}, false)
	if err != nil {
		return err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse session response: %w", err)
	}
	if resp.Token == "" {
		return errors.New("login failed: empty token")
	}
	r.token = resp.Token
	log.Printf("[remote] session opened for account %s", r.cfg.AccountID)
	return nil
}

// SubmitOrder posts an order to the gateway and returns its terminal state.
func (r *Remote) SubmitOrder(ctx context.Context, symbol string, dir model.Direction, price float64, volume int64) (model.Order, error) {
	body, err := r.authed(ctx, http.MethodPost, routes["orders"], map[string]any{
		"symbol":    symbol,
		"direction": string(dir),
		"price":     price,
		"volume":    volume,
	})
	if err != nil {
		return model.Order{}, err
	}

	var order model.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return model.Order{}, fmt.Errorf("parse order response: %w", err)
	}
	if order.ID == "" {
		return model.Order{}, errors.New("gateway returned no order id")
	}
	return order, nil
}

// AccountInfo fetches cash, positions, and total assets from the gateway.
func (r *Remote) AccountInfo(ctx context.Context) (model.AccountInfo, error) {
	body, err := r.authed(ctx, http.MethodGet, routes["account"], nil)
	if err != nil {
		return model.AccountInfo{}, err
	}

	var info model.AccountInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return model.AccountInfo{}, fmt.Errorf("parse account response: %w", err)
	}
	return info, nil
}

// authed performs an authenticated request, logging in first if needed and
// retrying once after a re-login on 401.
func (r *Remote) authed(ctx context.Context, method, route string, params map[string]any) ([]byte, error) {
	if r.token == "" {
		if err := r.Login(ctx); err != nil {
			return nil, err
		}
	}

	body, err := r.do(ctx, method, route, params, true)
	if err == nil {
		return body, nil
	}
	if !errors.Is(err, errUnauthorized) {
		return nil, err
	}

	if err := r.Login(ctx); err != nil {
		if r.SessionExpiryHook != nil {
			r.SessionExpiryHook()
		}
		return nil, err
	}
	return r.do(ctx, method, route, params, true)
}

var errUnauthorized = errors.New("unauthorized")

func (r *Remote) do(ctx context.Context, method, route string, params map[string]any, auth bool) ([]byte, error) {
	var body io.Reader
	if params != nil {
		b, _ := json.Marshal(params)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+route, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Account-ID", r.cfg.AccountID)
	if auth && r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errUnauthorized
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("gateway %s %s: status %d: %s", method, route, resp.StatusCode, string(raw))
	}
	return raw, nil
}
