package reconcile

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refreshedAt = time.Date(2025, 10, 19, 8, 25, 0, 0, time.UTC)

func fixed(n int) Multiplier { return func() int { return n } }

func strp(s string) *string { return &s }
func i64p(i int64) *int64   { return &i }

func TestReconcile_Wakanda(t *testing.T) {
	entries := []Entry{{Name: "Wakanda", Population: i64p(1000), Currencies: []string{"WKD"}}}
	rates := Rates{"WKD": json.Number("2.0")}

	for i := 0; i < 50; i++ {
		res := Reconcile(entries, rates, refreshedAt, nil)
		require.Len(t, res.Records, 1)
		rec := res.Records[0]

		require.NotNil(t, rec.CurrencyCode)
		assert.Equal(t, "WKD", *rec.CurrencyCode)
		require.NotNil(t, rec.ExchangeRate)
		assert.Equal(t, 2.0, *rec.ExchangeRate)
		require.NotNil(t, rec.EstimatedGDP)
		assert.GreaterOrEqual(t, *rec.EstimatedGDP, 500000.0)
		assert.LessOrEqual(t, *rec.EstimatedGDP, 1000000.0)
	}
}

func TestReconcile_InjectedMultiplier(t *testing.T) {
	entries := []Entry{{Name: "Nigeria", Population: i64p(200), Currencies: []string{"NGN"}}}
	res := Reconcile(entries, Rates{"NGN": 4.0}, refreshedAt, fixed(1500))

	require.Len(t, res.Records, 1)
	assert.Equal(t, 200.0*1500/4.0, *res.Records[0].EstimatedGDP)
}

func TestReconcile_Cases(t *testing.T) {
	cases := []struct {
		name     string
		entry    Entry
		rates    Rates
		wantCode *string
		wantRate *float64
		wantGDP  *float64
	}{
		{
			name:    "no currencies gives explicit zero gdp",
			entry:   Entry{Name: "Antarctica", Population: i64p(1000)},
			wantGDP: ptr(0.0),
		},
		{
			name:     "currency without rate leaves gdp null",
			entry:    Entry{Name: "X", Population: i64p(10), Currencies: []string{"XXX"}},
			rates:    Rates{"USD": 1.0},
			wantCode: strp("XXX"),
		},
		{
			name:     "non-numeric rate is unresolvable",
			entry:    Entry{Name: "X", Population: i64p(10), Currencies: []string{"ABC"}},
			rates:    Rates{"ABC": "n/a"},
			wantCode: strp("ABC"),
		},
		{
			name:     "numeric string rate accepted",
			entry:    Entry{Name: "X", Population: i64p(10), Currencies: []string{"ABC"}},
			rates:    Rates{"ABC": " 5 "},
			wantCode: strp("ABC"),
			wantRate: ptr(5.0),
			wantGDP:  ptr(10.0 * 1000 / 5),
		},
		{
			name:     "zero rate stored but no gdp",
			entry:    Entry{Name: "X", Population: i64p(10), Currencies: []string{"ABC"}},
			rates:    Rates{"ABC": 0.0},
			wantCode: strp("ABC"),
			wantRate: ptr(0.0),
		},
		{
			name:     "zero population gives null gdp",
			entry:    Entry{Name: "X", Currencies: []string{"ABC"}},
			rates:    Rates{"ABC": 2.0},
			wantCode: strp("ABC"),
			wantRate: ptr(2.0),
		},
		{
			name:     "first currency in document order wins",
			entry:    Entry{Name: "Zimbabwe", Population: i64p(4), Currencies: []string{"ZWL", "USD"}},
			rates:    Rates{"ZWL": 2.0, "USD": 1.0},
			wantCode: strp("ZWL"),
			wantRate: ptr(2.0),
			wantGDP:  ptr(4.0 * 1000 / 2),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Reconcile([]Entry{tc.entry}, tc.rates, refreshedAt, fixed(1000))
			require.Len(t, res.Records, 1)
			rec := res.Records[0]
			assert.Equal(t, tc.wantCode, rec.CurrencyCode)
			assert.Equal(t, tc.wantRate, rec.ExchangeRate)
			assert.Equal(t, tc.wantGDP, rec.EstimatedGDP)
		})
	}
}

func TestReconcile_TrimsOuterWhitespaceOnly(t *testing.T) {
	res := Reconcile([]Entry{{Name: " Côte d'Ivoire \t"}}, Rates{}, refreshedAt, fixed(1000))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Côte d'Ivoire", res.Records[0].Name)
}

func TestReconcile_SkipsNamelessAndStampsOnce(t *testing.T) {
	entries := []Entry{
		{Name: ""},
		{Name: "  "},
		{Name: "Ghana", Capitals: []string{"Accra", "Other"}, Region: strp("Africa"), FlagSVG: strp("https://flags/gh.svg")},
		{Name: "Kenya"},
	}
	res := Reconcile(entries, Rates{}, refreshedAt, fixed(1000))

	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Records, 2)

	gh := res.Records[0]
	assert.Equal(t, "Ghana", gh.Name)
	assert.Equal(t, "Accra", *gh.Capital)
	assert.Equal(t, "Africa", *gh.Region)
	assert.Equal(t, "https://flags/gh.svg", *gh.FlagURL)
	assert.Equal(t, int64(0), *gh.Population)

	ke := res.Records[1]
	assert.Nil(t, ke.Capital)
	assert.Nil(t, ke.Region)

	for _, r := range res.Records {
		require.NotNil(t, r.LastRefreshedAt)
		assert.True(t, r.LastRefreshedAt.Equal(refreshedAt))
	}
	assert.Same(t, res.Records[0].LastRefreshedAt, res.Records[1].LastRefreshedAt)
}

func TestRandomMultiplier_Bounds(t *testing.T) {
	for i := 0; i < 5000; i++ {
		m := RandomMultiplier()
		if m < MinMultiplier || m > MaxMultiplier {
			t.Fatalf("multiplier %d out of [%d,%d]", m, MinMultiplier, MaxMultiplier)
		}
	}
}

func TestParseRate(t *testing.T) {
	ok := []struct {
		in   any
		want float64
	}{
		{json.Number("1.5"), 1.5},
		{2.5, 2.5},
		{float32(0.5), 0.5},
		{3, 3},
		{int64(4), 4},
		{"6.25", 6.25},
	}
	for _, tc := range ok {
		got, valid := ParseRate(tc.in)
		assert.True(t, valid, "%#v", tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, bad := range []any{nil, true, "abc", json.Number("x"), math.NaN(), math.Inf(1), "Inf", map[string]any{}} {
		_, valid := ParseRate(bad)
		assert.False(t, valid, "%#v", bad)
	}
}

func ptr(f float64) *float64 { return &f }
