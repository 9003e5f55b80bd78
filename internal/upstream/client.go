// Package upstream fetches the two public datasets a refresh needs: the
// country directory and the latest USD exchange rates.
//
// Transport failures and non-2xx responses are errors. Body decoding is
// lenient: a document that cannot be parsed yields an empty dataset.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-country-currency/internal/config"
	"github.com/tbourn/go-country-currency/internal/reconcile"
)

// Names used when reporting which upstream failed.
const (
	CountriesSource = "Countries API"
	RatesSource     = "Exchange Rates API"
)

const (
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 32 << 20
)

// Client talks to the countries and rates APIs. It never retries.
type Client struct {
	http         *http.Client
	countriesURL string
	ratesURL     string
	timeout      time.Duration
	maxBody      int64
}

// New creates a Client for cfg. A nil hc uses a plain http.Client; the
// per-call deadline comes from cfg.Timeout.
func New(cfg config.UpstreamConfig, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:         hc,
		countriesURL: cfg.CountriesURL,
		ratesURL:     cfg.RatesURL,
		timeout:      timeout,
		maxBody:      maxBodyBytes,
	}
}

// FetchCountries retrieves and decodes the country directory.
func (c *Client) FetchCountries(ctx context.Context) ([]reconcile.Entry, error) {
	body, err := c.get(ctx, "FetchCountries", c.countriesURL)
	if err != nil {
		return nil, err
	}
	return ParseCountries(body), nil
}

// FetchRates retrieves and decodes the USD exchange rate table.
func (c *Client) FetchRates(ctx context.Context) (reconcile.Rates, error) {
	body, err := c.get(ctx, "FetchRates", c.ratesURL)
	if err != nil {
		return nil, err
	}
	return ParseRates(body), nil
}

// get performs one bounded GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	ctx, span := otel.Tracer("upstream/Client").Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.do(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response body exceeds %d bytes for url: %s", c.maxBody, url)
	}
	return body, nil
}
