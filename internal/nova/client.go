// Package nova is a read-only client for the legacy Nova admin panel.
// It logs in with the panel's browser session flow (CSRF token + cookies)
// and issues the same paginated JSON requests the admin UI makes.
package nova

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPError is returned for non-2xx responses from the legacy panel.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("legacy api returned status %d: %s", e.StatusCode, e.Body)
}

// AuthError is returned when the login flow fails.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "legacy login failed: " + e.Reason
}

type Option func(*Client)

// Client holds an authenticated session against one legacy panel.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	loggedIn   bool
}

// NewClient builds a client for the given panel base URL. The client owns a
// cookie jar; call Login before issuing resource requests.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	parsedBaseURL, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse legacy base url: %w", err)
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, fmt.Errorf("legacy base url must include scheme and host")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout, Jar: jar},
		baseURL:    parsedBaseURL,
	}

	for _, option := range options {
		option(client)
	}

	return client, nil
}

// WithHTTPTimeout overrides the transport timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient.Timeout = timeout
		}
	}
}

var csrfTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`name="_token"\s+value="([^"]+)"`),
	regexp.MustCompile(`name="csrf-token"\s+content="([^"]+)"`),
}

// Login performs the panel's form login. The session lives in the cookie
// jar; the client holds no credentials afterwards.
func (c *Client) Login(ctx context.Context, email, password string) error {
	loginURL, err := c.resolveURL("/login")
	if err != nil {
		return err
	}

	pageReq, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return err
	}
	pageResp, err := c.httpClient.Do(pageReq)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("fetch login page: %v", err)}
	}
	page, err := io.ReadAll(pageResp.Body)
	pageResp.Body.Close()
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("read login page: %v", err)}
	}
	if pageResp.StatusCode >= http.StatusBadRequest {
		return &AuthError{Reason: fmt.Sprintf("login page returned status %d", pageResp.StatusCode)}
	}

	token := extractCSRFToken(string(page))
	if token == "" {
		return &AuthError{Reason: "could not locate csrf token on login page"}
	}

	form := url.Values{}
	form.Set("_token", token)
	form.Set("email", strings.TrimSpace(email))
	form.Set("password", password)

	loginReq, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	loginResp, err := c.httpClient.Do(loginReq)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("submit login: %v", err)}
	}
	defer loginResp.Body.Close()
	_, _ = io.Copy(io.Discard, loginResp.Body)

	if loginResp.StatusCode >= http.StatusBadRequest {
		return &AuthError{Reason: fmt.Sprintf("login returned status %d", loginResp.StatusCode)}
	}
	// A failed form login redirects straight back to /login.
	if strings.HasSuffix(strings.TrimRight(loginResp.Request.URL.Path, "/"), "/login") {
		return &AuthError{Reason: "invalid credentials"}
	}

	c.loggedIn = true
	return nil
}

// Request issues an authenticated JSON request. The path may be relative to
// the panel base URL or an absolute next-page URL from a prior response.
func (c *Client) Request(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	if !c.loggedIn {
		return nil, &AuthError{Reason: "client is not logged in"}
	}

	requestURL, err := c.resolveURL(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		parsed, err := url.Parse(requestURL)
		if err != nil {
			return nil, fmt.Errorf("parse request url %q: %w", requestURL, err)
		}
		merged := parsed.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		parsed.RawQuery = merged.Encode()
		requestURL = parsed.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode legacy response from %s: %w", requestURL, err)
	}

	return &envelope, nil
}

func (c *Client) resolveURL(endpoint string) (string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return "", fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed, nil
	}

	relative, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	return c.baseURL.ResolveReference(relative).String(), nil
}

func extractCSRFToken(page string) string {
	for _, pattern := range csrfTokenPatterns {
		if match := pattern.FindStringSubmatch(page); len(match) == 2 {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}
