// Package places is the address-autocomplete provider behind the job form's
// location field. It talks to the Google Places Autocomplete and Details
// endpoints.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Google Maps web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultTimeout bounds each Places request.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit caps lookups per second while the user types.
	DefaultRateLimit = 5

	detailFields = "formatted_address,geometry,address_component"
)

// ErrNoAPIKey is returned when lookups are attempted without a key.
var ErrNoAPIKey = errors.New("places: no API key configured")

// Client queries the Places web service. Autocomplete calls share a session
// token until the next Details call, which is how Google bills a lookup.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	region     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	newToken   func() string

	mu      sync.Mutex
	session string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithLanguage sets the result language (e.g. "de").
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// WithRegion restricts suggestions to a country code (e.g. "de").
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = strings.ToLower(strings.TrimSpace(region))
	}
}

// New creates a Places client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     arbor.NewNoOpLogger(),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		newToken:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Autocomplete returns suggestions for partial address input.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("input", input)
	params.Set("types", "address")
	params.Set("sessiontoken", c.sessionToken())
	if c.language != "" {
		params.Set("language", c.language)
	}
	if c.region != "" {
		params.Set("components", "country:"+c.region)
	}
	var resp AutocompleteResponse
	if err := c.get(ctx, "/place/autocomplete/json", params, &resp); err != nil {
		return nil, err
	}
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("input", input).Int("predictions", len(resp.Predictions)).Msg("Places autocomplete completed")
	return resp.Predictions, nil
}

// Details resolves a prediction into a Place and closes the current session.
func (c *Client) Details(ctx context.Context, placeID string) (Place, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return Place{}, fmt.Errorf("places: place id is required")
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)
	params.Set("sessiontoken", c.endSession())
	if c.language != "" {
		params.Set("language", c.language)
	}
	var resp DetailsResponse
	if err := c.get(ctx, "/place/details/json", params, &resp); err != nil {
		return Place{}, err
	}
	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return Place{}, err
	}
	resp.Result.PlaceID = placeID
	return resp.Result, nil
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == "" {
		c.session = c.newToken()
	}
	return c.session
}

func (c *Client) endSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.session
	if token == "" {
		token = c.newToken()
	}
	c.session = ""
	return token
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if !c.Enabled() {
		return ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("places: rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path
	logParams := url.Values{}
	for k, v := range params {
		logParams[k] = v
	}
	logParams.Set("key", "***REDACTED***")
	c.logger.Debug().Str("url", endpoint+"?"+logParams.Encode()).Msg("Calling Google Places API")

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("places: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("places: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("places: %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("places: decode %s: %w", path, err)
	}
	return nil
}

func statusError(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	}
	if message != "" {
		return fmt.Errorf("places: API error: %s - %s", status, message)
	}
	return fmt.Errorf("places: API error: %s", status)
}
