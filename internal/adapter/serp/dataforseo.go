package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/ingest"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const (
	// DefaultBaseURL is the DataForSEO API root.
	DefaultBaseURL = "https://api.dataforseo.com"

	livePath   = "/v3/serp/google/organic/live/advanced"
	statusOK   = 20000
	maxRetries = 2
)

// DataForSEOConfig holds the credentials and throttling of the client.
type DataForSEOConfig struct {
	Login    string
	Password string
	BaseURL  string // empty = DefaultBaseURL
	RPM      int    // requests per minute, <= 0 disables throttling
}

// DataForSEOProvider implements port.SERPProvider on the DataForSEO live
// SERP endpoint.
type DataForSEOProvider struct {
	cfg        DataForSEOConfig
	limiter    *rate.Limiter
	httpClient *http.Client
}

var _ port.SERPProvider = (*DataForSEOProvider)(nil)

// NewDataForSEOProvider creates a client. The limiter allows RPM requests per
// minute with a burst of one.
func NewDataForSEOProvider(cfg DataForSEOConfig) *DataForSEOProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if cfg.RPM > 0 {
		limit = rate.Limit(float64(cfg.RPM) / 60.0)
	}
	return &DataForSEOProvider{
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ProviderName returns "dataforseo".
func (p *DataForSEOProvider) ProviderName() string {
	return "dataforseo"
}

type liveTask struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Device       string `json:"device"`
	LoadAsyncAIO bool   `json:"load_async_ai_overview"`
	ExpandAIO    bool   `json:"expand_ai_overview"`
}

// FetchKeyword runs one live search and converts the first result page.
func (p *DataForSEOProvider) FetchKeyword(ctx context.Context, q port.SERPQuery) (domain.KeywordRow, error) {
	if p.cfg.Login == "" || p.cfg.Password == "" {
		return domain.KeywordRow{}, port.ErrProviderNotConfigured
	}

	payload := []liveTask{{
		Keyword:      q.Keyword,
		LocationCode: q.LocationCode,
		LanguageCode: q.LanguageCode,
		Device:       "desktop",
		LoadAsyncAIO: true,
		ExpandAIO:    true,
	}}

	var (
		body []byte
		err  error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = p.limiter.Wait(ctx); err != nil {
			return domain.KeywordRow{}, fmt.Errorf("dataforseo wait: %w", err)
		}
		body, err = p.post(ctx, livePath, payload)
		if err == nil || !isRetryable(err) {
			break
		}
	}
	if err != nil {
		return domain.KeywordRow{}, fmt.Errorf("dataforseo %q: %w", q.Keyword, err)
	}

	var resp ingest.TaskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.KeywordRow{}, fmt.Errorf("dataforseo decode: %w", err)
	}
	if resp.StatusCode != statusOK {
		return domain.KeywordRow{}, fmt.Errorf("dataforseo status %d: %s", resp.StatusCode, resp.StatusMessage)
	}
	if len(resp.Tasks) == 0 {
		return domain.KeywordRow{}, fmt.Errorf("dataforseo: empty response")
	}

	task := resp.Tasks[0]
	if task.StatusCode != statusOK {
		return domain.KeywordRow{}, fmt.Errorf("dataforseo task status %d: %s", task.StatusCode, task.StatusMessage)
	}
	for _, res := range task.Result {
		if res.Keyword == "" {
			res.Keyword = q.Keyword
		}
		if row, ok := res.Row(); ok {
			return row, nil
		}
	}
	return domain.KeywordRow{Keyword: q.Keyword}, nil
}

// statusError is a non-200 HTTP response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("dataforseo API error (%d): %s", e.code, e.body)
}

func isRetryable(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return false
	}
	return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
}

// post sends an authenticated JSON POST and returns the response body.
func (p *DataForSEOProvider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.Login, p.cfg.Password)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
