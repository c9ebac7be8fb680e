package scrape

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/econ-calendar/internal/resilience"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxBody   = 8 << 20
	minPageBytes     = 100
)

// LocalOptions configures the LocalScraper.
type LocalOptions struct {
	UserAgent string
	// Timeout bounds a single fetch. Default: 15s.
	Timeout time.Duration
	// MaxBodyBytes caps the bytes read from a response. Default: 8 MiB.
	MaxBodyBytes int64
	// RateLimiters holds per-host limiters keyed by host.
	RateLimiters map[string]*rate.Limiter
	// DefaultRate applies to hosts without an explicit limiter.
	// Default: 2 requests per second, burst 2.
	DefaultRate  rate.Limit
	DefaultBurst int
}

// LocalScraper fetches pages directly via net/http, respecting a per-host
// rate limit and rejecting bot-challenge pages. The markup is returned as-is
// after charset decoding.
type LocalScraper struct {
	client *http.Client
	opts   LocalOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	nowFunc  func() time.Time
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper(opts LocalOptions) *LocalScraper {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.DefaultRate <= 0 {
		opts.DefaultRate = 2
	}
	if opts.DefaultBurst <= 0 {
		opts.DefaultBurst = 2
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
		nowFunc:  time.Now,
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

func (l *LocalScraper) limiterFor(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.opts.DefaultRate, l.opts.DefaultBurst)
		l.limiters[host] = lim
	}
	return lim
}

// Scrape fetches a URL and returns its decoded markup. Blocks, non-2xx
// statuses and near-empty bodies are errors.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if err := l.limiterFor(targetURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "local_http: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		zap.L().Debug("local_http: blocked",
			zap.String("url", targetURL),
			zap.String("block", string(blockType)),
		)
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Wrap(resilience.NewStatusError(targetURL, resp.StatusCode), "local_http")
	}

	if len(body) < minPageBytes {
		return nil, eris.New("local_http: empty page")
	}

	html, err := decodeBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			HTML:       html,
			StatusCode: resp.StatusCode,
			FetchedAt:  l.nowFunc().UTC(),
		},
		Source: l.Name(),
	}, nil
}

// decodeBody converts body to UTF-8 using the charset named in the
// Content-Type header. Missing or unparsable headers leave body unchanged.
func decodeBody(contentType string, body []byte) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	cs := strings.TrimSpace(params["charset"])
	if cs == "" || strings.EqualFold(cs, "utf-8") || strings.EqualFold(cs, "utf8") {
		return string(body), nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return "", eris.Wrapf(err, "local_http: unsupported charset %q", cs)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "local_http: decode %s", cs)
	}
	return string(out), nil
}
