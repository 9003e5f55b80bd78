package upstream

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/tbourn/go-country-currency/internal/reconcile"
)

// ParseCountries decodes a countries document. The document may be a bare
// array or an object wrapping the array under "data". Elements that are not
// objects become zero Entries so they still count as processed.
func ParseCountries(body []byte) []reconcile.Entry {
	var top json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return []reconcile.Entry{}
	}

	if obj, ok := asObject(top); ok {
		data, found := obj["data"]
		if !found {
			return []reconcile.Entry{}
		}
		top = data
	}

	var items []json.RawMessage
	if err := json.Unmarshal(top, &items); err != nil {
		return []reconcile.Entry{}
	}

	out := make([]reconcile.Entry, 0, len(items))
	for _, raw := range items {
		out = append(out, parseEntry(raw))
	}
	return out
}

func parseEntry(raw json.RawMessage) reconcile.Entry {
	var e reconcile.Entry
	obj, ok := asObject(raw)
	if !ok {
		return e
	}

	if name, ok := asObject(obj["name"]); ok {
		e.Name, _ = asString(name["common"])
	}

	var capitals []json.RawMessage
	if json.Unmarshal(obj["capital"], &capitals) == nil && len(capitals) > 0 {
		if s, ok := asString(capitals[0]); ok {
			e.Capitals = []string{s}
		}
	}

	if s, ok := asString(obj["region"]); ok {
		e.Region = &s
	}

	if n, ok := asInt(obj["population"]); ok {
		e.Population = &n
	}

	e.Currencies = objectKeys(obj["currencies"])

	if flags, ok := asObject(obj["flags"]); ok {
		if s, ok := asString(flags["svg"]); ok {
			e.FlagSVG = &s
		}
	}
	return e
}

// ParseRates decodes a rates document of the form {"rates": {code: value}}.
// Values are kept raw (json.Number for numbers) so conversion failures are
// decided by reconcile.ParseRate. Null values are dropped.
func ParseRates(body []byte) reconcile.Rates {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return reconcile.Rates{}
	}

	raw, ok := payload["rates"].(map[string]any)
	if !ok {
		return reconcile.Rates{}
	}
	out := make(reconcile.Rates, len(raw))
	for code, v := range raw {
		if v != nil {
			out[code] = v
		}
	}
	return out
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

func asString(raw json.RawMessage) (string, bool) {
	var s *string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || s == nil {
		return "", false
	}
	return *s, true
}

func asInt(raw json.RawMessage) (int64, bool) {
	var n json.Number
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// objectKeys returns the keys of a JSON object in document order, or nil
// when raw is not an object.
func objectKeys(raw json.RawMessage) []string {
	if _, ok := asObject(raw); !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}
