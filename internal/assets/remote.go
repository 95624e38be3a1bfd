package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alexballas/xmediabrowser/mediabrowser"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// retryLogger routes retryablehttp messages to zerolog.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// RemoteOptions configure a RemoteSource.
type RemoteOptions struct {
	BaseURL string
	Token   string

	RetryMax     int // default 3, negative disables retries
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       zerolog.Logger
}

// RemoteSource talks to an HTTP asset service:
//
//	GET {base}/assets?q=&filter=&order=&offset=&limit=  {"items": [...], "total": n}
//	GET {base}/filters                                   [{"title": "", "value": ""}]
type RemoteSource struct {
	base   *url.URL
	token  string
	client *retryablehttp.Client
	log    zerolog.Logger
}

var (
	_ mediabrowser.AssetSource   = (*RemoteSource)(nil)
	_ mediabrowser.PreviewOpener = (*RemoteSource)(nil)
)

type assetsResponse struct {
	Items []mediabrowser.Asset `json:"items"`
	Total int                  `json:"total"`
}

func NewRemoteSource(opts RemoteOptions) (*RemoteSource, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid asset service url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid asset service url %q: want http or https", opts.BaseURL)
	}

	log := opts.Logger.With().Str("remote", base.Host).Logger()

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	if opts.RetryMax != 0 {
		client.RetryMax = max(opts.RetryMax, 0)
	}
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	client.Logger = retryLogger{log: log}
	// hand the last response back so its status ends up in the error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &RemoteSource{base: base, token: opts.Token, client: client, log: log}, nil
}

func (s *RemoteSource) Fetch(ctx context.Context, q mediabrowser.Query) (mediabrowser.Page, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Filter != nil && q.Filter.Value != "" {
		v.Set("filter", q.Filter.Value)
	}
	if q.Order.Value != "" {
		v.Set("order", q.Order.Value)
	}
	v.Set("offset", strconv.Itoa(max(q.PageIndex, 0)*q.PageSize))
	v.Set("limit", strconv.Itoa(q.PageSize))

	var resp assetsResponse
	if err := s.getJSON(ctx, s.endpoint("assets", v), &resp); err != nil {
		return mediabrowser.Page{}, err
	}
	return mediabrowser.Page{Assets: resp.Items, Total: resp.Total}, nil
}

func (s *RemoteSource) Filters(ctx context.Context) ([]mediabrowser.Filter, error) {
	var filters []mediabrowser.Filter
	if err := s.getJSON(ctx, s.endpoint("filters", nil), &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// OpenPreview streams preview_url, or url for assets without one. Relative
// locations resolve against the service url.
func (s *RemoteSource) OpenPreview(ctx context.Context, a mediabrowser.Asset) (io.ReadCloser, error) {
	loc := a.PreviewURL
	if loc == "" {
		loc = a.URL
	}
	if loc == "" {
		return nil, fmt.Errorf("asset %s has no preview", a.ID)
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("asset %s preview url: %w", a.ID, err)
	}

	dir := *s.base
	dir.Path = strings.TrimSuffix(dir.Path, "/") + "/"
	resp, err := s.do(ctx, dir.ResolveReference(ref).String())
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s *RemoteSource) endpoint(name string, v url.Values) string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + name
	u.RawQuery = v.Encode()
	return u.String()
}

func (s *RemoteSource) getJSON(ctx context.Context, target string, out any) error {
	resp, err := s.do(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

// do performs an authenticated GET. The caller owns the body of a
// successful response.
func (s *RemoteSource) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	s.log.Debug().Str("url", target).Int("status", resp.StatusCode).Dur("took", time.Since(started)).Msg("asset service request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{
			Method: http.MethodGet,
			URL:    target,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}
