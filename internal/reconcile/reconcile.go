// Package reconcile merges the raw country directory with the USD exchange
// rate table into normalized country rows ready to be upserted.
//
// The merge is pure: it performs no I/O and takes the refresh timestamp and
// the GDP multiplier source from the caller.
package reconcile

import (
	"encoding/json"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-country-currency/internal/domain"
)

// Bounds of the GDP multiplier, inclusive.
const (
	MinMultiplier = 1000
	MaxMultiplier = 2000
)

// Entry is one country as reported by the directory API. Optional fields
// are nil when absent; Currencies keeps the document order of its keys.
type Entry struct {
	Name       string
	Capitals   []string
	Region     *string
	Population *int64
	Currencies []string
	FlagSVG    *string
}

// Rates maps a currency code to its raw USD rate value. Values are usually
// json.Number or float64 but anything is accepted; see ParseRate.
type Rates map[string]any

// Multiplier returns a GDP multiplier in [MinMultiplier, MaxMultiplier].
type Multiplier func() int

// RandomMultiplier draws uniformly from [MinMultiplier, MaxMultiplier].
func RandomMultiplier() int {
	return MinMultiplier + rand.Intn(MaxMultiplier-MinMultiplier+1)
}

// Result is the outcome of Reconcile. Processed counts every input entry;
// Skipped counts the ones that produced no record.
type Result struct {
	Records   []domain.Country
	Processed int
	Skipped   int
}

// Reconcile normalizes entries against rates. Every record is stamped with
// at. A nil mult falls back to RandomMultiplier.
func Reconcile(entries []Entry, rates Rates, at time.Time, mult Multiplier) Result {
	if mult == nil {
		mult = RandomMultiplier
	}
	stamp := at
	res := Result{
		Records:   make([]domain.Country, 0, len(entries)),
		Processed: len(entries),
	}

	for _, e := range entries {
		rec, ok := normalize(e, rates, mult)
		if !ok {
			res.Skipped++
			continue
		}
		rec.LastRefreshedAt = &stamp
		res.Records = append(res.Records, rec)
	}
	return res
}

func normalize(e Entry, rates Rates, mult Multiplier) (domain.Country, bool) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return domain.Country{}, false
	}

	var population int64
	if e.Population != nil {
		population = *e.Population
	}

	rec := domain.Country{
		Name:       name,
		Region:     e.Region,
		Population: &population,
		FlagURL:    e.FlagSVG,
	}
	if len(e.Capitals) > 0 {
		capital := e.Capitals[0]
		rec.Capital = &capital
	}

	if len(e.Currencies) == 0 {
		zero := 0.0
		rec.EstimatedGDP = &zero
		return rec, true
	}

	code := e.Currencies[0]
	rec.CurrencyCode = &code

	raw, ok := rates[code]
	if !ok {
		return rec, true
	}
	rate, ok := ParseRate(raw)
	if !ok {
		return rec, true
	}
	rec.ExchangeRate = &rate

	if rate > 0 && population > 0 {
		gdp := float64(population) * float64(mult()) / rate
		rec.EstimatedGDP = &gdp
	}
	return rec, true
}

// ParseRate converts a raw rate value to a finite float. JSON numbers,
// Go numeric types and numeric strings are accepted.
func ParseRate(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
