package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"feedrelay/internal/config"
	"feedrelay/internal/feed"
	"feedrelay/internal/media"
	"feedrelay/internal/services"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 512
)

// Options configures a Client.
type Options struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
	// HTTPClient supplies the base transport for token and API requests.
	HTTPClient *http.Client
}

// OptionsFromConfig maps the [reddit] config section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
		BaseURL:      cfg.Reddit.BaseURL,
		TokenURL:     cfg.Reddit.TokenURL,
		Timeout:      cfg.RedditTimeout(),
	}
}

// Client reads subreddit listings.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// New builds an authenticated client. Credentials are not exercised until the
// first request.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "reddit", "new client", "client_id and client_secret are required", nil)
	}
	if (opts.Username == "") != (opts.Password == "") {
		return nil, services.Wrap(services.ErrConfiguration, "reddit", "new client", "username and password must be set together", nil)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	uaClient := &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: strings.TrimSpace(opts.UserAgent)},
		Timeout:   timeout,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, uaClient)

	var source oauth2.TokenSource
	endpoint := oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	if opts.Username != "" {
		cfg := &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
		}
		source = oauth2.ReuseTokenSource(nil, &passwordSource{
			ctx:      tokenCtx,
			cfg:      cfg,
			username: opts.Username,
			password: opts.Password,
		})
	} else {
		cfg := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		source = cfg.TokenSource(tokenCtx)
	}

	return &Client{
		http:    oauth2.NewClient(tokenCtx, source),
		baseURL: baseURL,
		timeout: timeout,
	}, nil
}

// passwordSource re-runs the password grant whenever the cached token
// expires; script apps receive no refresh token.
type passwordSource struct {
	ctx      context.Context
	cfg      *oauth2.Config
	username string
	password string
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	return s.cfg.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// Listing returns up to q.Limit posts in feed order.
func (c *Client) Listing(ctx context.Context, q feed.Query) ([]media.Post, error) {
	if err := q.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "reddit", "listing", "invalid query", err)
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("raw_json", "1")
	if q.Filter.NeedsTimeRange() {
		params.Set("t", string(q.TimeRange))
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s?%s", c.baseURL, url.PathEscape(q.Source), q.Filter, params.Encode())

	var payload listing
	status, err := c.getJSON(ctx, endpoint, &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusForbidden {
		return nil, services.Wrap(services.ErrValidation, "reddit", "listing", fmt.Sprintf("source r/%s is missing or private", q.Source), nil)
	}

	posts := make([]media.Post, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data.toPost())
		if len(posts) == q.Limit {
			break
		}
	}
	return posts, nil
}

// SourceExists reports whether a subreddit can be listed.
func (c *Client) SourceExists(ctx context.Context, name string) (bool, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "r/")
	if !feed.ValidSourceName(name) {
		return false, nil
	}
	var about aboutResponse
	status, err := c.getJSON(ctx, fmt.Sprintf("%s/r/%s/about", c.baseURL, url.PathEscape(name)), &about)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusNotFound, http.StatusForbidden:
		return false, nil
	}
	return about.Kind == "t5" && strings.EqualFold(about.Data.DisplayName, name), nil
}

// getJSON decodes a 2xx body into dst. 403 and 404 are returned as statuses
// without an error so callers can treat them as missing sources.
func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "reddit", "build request", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if text := strings.TrimSpace(string(snippet)); text != "" {
			msg = fmt.Sprintf("%s: %s", msg, text)
		}
		return resp.StatusCode, services.Wrap(services.ErrNetwork, "reddit", "get", msg, nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, services.Wrap(services.ErrNetwork, "reddit", "decode", endpoint, err)
	}
	return resp.StatusCode, nil
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return services.Wrap(services.ErrTimeout, "reddit", "get", "request timed out", err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return services.Wrap(services.ErrConfiguration, "reddit", "token", "token request rejected", err)
	}
	return services.Wrap(services.ErrNetwork, "reddit", "get", "request failed", err)
}
