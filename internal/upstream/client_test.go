package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-country-currency/internal/config"
)

const countriesDoc = `[
  {"name":{"common":"Zimbabwe"},"capital":["Harare"],"region":"Africa","population":15000000,
   "flags":{"svg":"https://flagcdn.com/zw.svg"},"currencies":{"ZWL":{"name":"dollar"},"BWP":{},"USD":{}}},
  {"name":{"common":"Antarctica"},"region":"Antarctic","population":1000,"currencies":{}},
  "garbage",
  {"name":{"official":"No Common"}}
]`

func newTestClient(t *testing.T, countries, rates http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	cs := httptest.NewServer(countries)
	t.Cleanup(cs.Close)
	rs := httptest.NewServer(rates)
	t.Cleanup(rs.Close)
	return New(config.UpstreamConfig{CountriesURL: cs.URL, RatesURL: rs.URL, Timeout: timeout}, cs.Client())
}

func body(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func TestFetchCountries_ParsesEntries(t *testing.T) {
	c := newTestClient(t, body(countriesDoc), body(`{}`), time.Second)

	entries, err := c.FetchCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)

	zw := entries[0]
	assert.Equal(t, "Zimbabwe", zw.Name)
	assert.Equal(t, []string{"Harare"}, zw.Capitals)
	assert.Equal(t, "Africa", *zw.Region)
	assert.Equal(t, int64(15000000), *zw.Population)
	assert.Equal(t, []string{"ZWL", "BWP", "USD"}, zw.Currencies)
	assert.Equal(t, "https://flagcdn.com/zw.svg", *zw.FlagSVG)

	assert.Empty(t, entries[1].Currencies)
	assert.Nil(t, entries[1].Capitals)
	assert.Empty(t, entries[2].Name, "non-object entries decode to zero entries")
	assert.Empty(t, entries[3].Name)
}

func TestFetchCountries_DataWrapperAndGarbage(t *testing.T) {
	c := newTestClient(t, body(`{"data":[{"name":{"common":"Ghana"}}]}`), body(`{}`), time.Second)
	entries, err := c.FetchCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ghana", entries[0].Name)

	for _, doc := range []string{`not json`, `{"message":"x"}`, `42`, `{"data":"nope"}`} {
		assert.Empty(t, ParseCountries([]byte(doc)), doc)
	}
}

func TestFetchRates(t *testing.T) {
	c := newTestClient(t, body(`[]`), body(`{"result":"success","rates":{"USD":1,"NGN":1600.5,"BAD":"x","NUL":null}}`), time.Second)

	rates, err := c.FetchRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), rates["USD"])
	assert.Equal(t, json.Number("1600.5"), rates["NGN"])
	assert.Equal(t, "x", rates["BAD"])
	_, ok := rates["NUL"]
	assert.False(t, ok, "null rates are treated as absent")

	assert.Empty(t, ParseRates([]byte(`<html>`)))
	assert.Empty(t, ParseRates([]byte(`{"rates":[1,2]}`)))
}

func TestFetch_NonSuccessStatusIsError(t *testing.T) {
	c := newTestClient(t, status(http.StatusBadGateway), status(http.StatusNotFound), time.Second)

	_, err := c.FetchCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, err = c.FetchRates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_TimeoutIsError(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	c := newTestClient(t, slow, body(`{}`), 50*time.Millisecond)

	start := time.Now()
	_, err := c.FetchCountries(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew_DefaultsTimeout(t *testing.T) {
	c := New(config.UpstreamConfig{}, nil)
	assert.Equal(t, defaultTimeout, c.timeout)
	assert.NotNil(t, c.http)
}

func TestFetch_OversizedBodyIsError(t *testing.T) {
	c := newTestClient(t, body(countriesDoc), body(`{"rates":{"NGN":1600.5}}`), time.Second)
	c.maxBody = 16

	_, err := c.FetchCountries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")

	_, err = c.FetchRates(context.Background())
	require.Error(t, err)
}

func TestFetch_BodyAtLimitIsAccepted(t *testing.T) {
	doc := `{"rates":{"NGN":1600.5}}`
	c := newTestClient(t, body(countriesDoc), body(doc), time.Second)
	c.maxBody = int64(len(doc))

	rates, err := c.FetchRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, json.Number("1600.5"), rates["NGN"])
}
