package wpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 1 << 20

// Routes are REST routes relative to the /wp-json namespace root.
type Routes struct {
	Login                string
	Validate             string
	Profile              string
	TokenLogin           string
	Register             string
	PasswordResetRequest string
	PasswordResetConfirm string
	PasswordChange       string
}

// DefaultRoutes matches the JWT auth plugin plus the membership plugin's
// gn/v1 namespace.
func DefaultRoutes() Routes {
	return Routes{
		Login:                "/jwt-auth/v1/token",
		Validate:             "/jwt-auth/v1/token/validate",
		Profile:              "/wp/v2/users/me",
		TokenLogin:           "/gn/v1/token-login",
		Register:             "/gn/v1/register",
		PasswordResetRequest: "/gn/v1/password-reset",
		PasswordResetConfirm: "/gn/v1/password-reset/confirm",
		PasswordChange:       "/gn/v1/change-password",
	}
}

// Config configures the backend boundary.
type Config struct {
	BaseURL           string
	AllowInsecureHTTP bool
	RequestTimeout    time.Duration
	UserAgent         string
	Routes            Routes
}

// Probe captures the request metadata the diagnostics screen renders.
type Probe struct {
	URL        string
	StatusCode int
	Headers    http.Header
}

// Client is the WordPress REST client. It is stateless apart from
// configuration and safe for concurrent use.
type Client struct {
	cfg  Config
	base *url.URL
	http *http.Client

	// OnFallback is invoked once per request that falls back to the
	// ?rest_route= form. Used for metrics; may be nil.
	OnFallback func(route string)
}

// New validates cfg and returns a Client. Plain HTTP is rejected unless the
// development override is set.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch base.Scheme {
	case "https":
	case "http":
		if !cfg.AllowInsecureHTTP {
			return nil, errors.New("plain http requires the insecure development override")
		}
	default:
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Routes == (Routes{}) {
		cfg.Routes = DefaultRoutes()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, base: base, http: httpClient}, nil
}

// Routes returns the active route table.
func (c *Client) Routes() Routes {
	return c.cfg.Routes
}

func (c *Client) prettyURL(route string) string {
	return c.base.String() + "/wp-json" + route
}

func (c *Client) queryURL(route string) string {
	return c.base.String() + "/?rest_route=" + route
}

// Discovery probes the REST namespace root. Used by the diagnostics server
// check.
func (c *Client) Discovery(ctx context.Context) (Probe, error) {
	return c.do(ctx, http.MethodGet, c.base.String()+"/wp-json/", "", nil, nil)
}

// LoginWithPassword exchanges credentials for a bearer token, retrying the
// query-string route form once when the pretty route is absent.
func (c *Client) LoginWithPassword(ctx context.Context, identifier, password string) (*LoginPayload, error) {
	body := map[string]string{"username": identifier, "password": password}
	out := &LoginPayload{}
	if _, err := c.postRoute(ctx, c.cfg.Routes.Login, "", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoginWithHandoffToken exchanges a one-time deep-link token for a session.
func (c *Client) LoginWithHandoffToken(ctx context.Context, handoffToken string) (*LoginPayload, error) {
	body := map[string]string{"token": handoffToken}
	out := &LoginPayload{}
	if _, err := c.postRoute(ctx, c.cfg.Routes.TokenLogin, "", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateToken asks the backend whether the bearer token is still accepted.
func (c *Client) ValidateToken(ctx context.Context, bearer string) error {
	_, err := c.postRoute(ctx, c.cfg.Routes.Validate, bearer, nil, nil)
	return err
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, bearer string) (*ProfilePayload, Probe, error) {
	out := &ProfilePayload{}
	probe, err := c.getRoute(ctx, c.cfg.Routes.Profile, bearer, out)
	if err != nil {
		return nil, probe, err
	}
	return out, probe, nil
}

// Register creates an account and returns the backend's confirmation message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	out := &messageBody{}
	if _, err := c.postRoute(ctx, c.cfg.Routes.Register, "", req, out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// RequestPasswordReset asks the backend to start the reset flow.
func (c *Client) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	out := &messageBody{}
	body := map[string]string{"identifier": identifier}
	if _, err := c.postRoute(ctx, c.cfg.Routes.PasswordResetRequest, "", body, out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ConfirmPasswordReset redeems an emailed reset code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req ResetConfirmRequest) (string, error) {
	out := &messageBody{}
	if _, err := c.postRoute(ctx, c.cfg.Routes.PasswordResetConfirm, "", req, out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ChangePassword performs the authenticated password change round-trip.
func (c *Client) ChangePassword(ctx context.Context, bearer, current, replacement string) (string, error) {
	out := &messageBody{}
	body := map[string]string{"current_password": current, "new_password": replacement}
	if _, err := c.postRoute(ctx, c.cfg.Routes.PasswordChange, bearer, body, out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) postRoute(ctx context.Context, route, bearer string, body, out any) (Probe, error) {
	return c.routeWithFallback(ctx, http.MethodPost, route, bearer, body, out)
}

func (c *Client) getRoute(ctx context.Context, route, bearer string, out any) (Probe, error) {
	return c.routeWithFallback(ctx, http.MethodGet, route, bearer, nil, out)
}

func (c *Client) routeWithFallback(ctx context.Context, method, route, bearer string, body, out any) (Probe, error) {
	probe, err := c.do(ctx, method, c.prettyURL(route), bearer, body, out)
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == KindRouteNotFound {
		if c.OnFallback != nil {
			c.OnFallback(route)
		}
		return c.do(ctx, method, c.queryURL(route), bearer, body, out)
	}
	return probe, err
}

func (c *Client) do(ctx context.Context, method, rawURL, bearer string, body, out any) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Probe{URL: rawURL}, &RequestError{Kind: KindMalformed, URL: rawURL, err: err}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return Probe{URL: rawURL}, &RequestError{Kind: KindNetwork, URL: rawURL, err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return Probe{URL: rawURL}, &RequestError{Kind: kind, URL: rawURL, err: err}
	}
	defer resp.Body.Close()

	probe := Probe{URL: rawURL, StatusCode: resp.StatusCode, Headers: resp.Header}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return probe, &RequestError{Kind: KindNetwork, URL: rawURL, StatusCode: resp.StatusCode, Headers: resp.Header, err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return probe, &RequestError{
					Kind:       KindMalformed,
					Message:    "undecodable response body",
					URL:        rawURL,
					StatusCode: resp.StatusCode,
					Headers:    resp.Header,
					err:        err,
				}
			}
		}
		return probe, nil
	}

	return probe, c.classifyFailure(rawURL, resp, string(raw))
}

// Substrings of WordPress error codes that mean the credentials themselves
// were rejected. The JWT plugin prefixes its codes with "[jwt_auth]".
var credentialErrorCodes = []string{
	"invalid_username",
	"incorrect_password",
	"invalid_email",
	"invalid_credentials",
	"authentication_failed",
}

func (c *Client) classifyFailure(rawURL string, resp *http.Response, body string) *RequestError {
	base := &RequestError{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}

	if looksLikeHTML(body) {
		base.Message = SanitizeHTML(body)
		if resp.StatusCode >= 500 {
			base.Kind = KindServerFault
		} else {
			base.Kind = KindHTTP
		}
		return base
	}

	var wpErr wpErrorBody
	if err := json.Unmarshal([]byte(body), &wpErr); err == nil && wpErr.Code != "" {
		base.WPCode = wpErr.Code
		base.Message = SanitizeHTML(wpErr.Message)

		if strings.Contains(wpErr.Code, "rest_no_route") {
			base.Kind = KindRouteNotFound
			return base
		}
		for _, fragment := range credentialErrorCodes {
			if strings.Contains(wpErr.Code, fragment) {
				base.Kind = KindInvalidCredentials
				return base
			}
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		base.Kind = KindUnauthorized
	case resp.StatusCode >= 500:
		base.Kind = KindServerFault
	default:
		base.Kind = KindHTTP
	}
	return base
}
