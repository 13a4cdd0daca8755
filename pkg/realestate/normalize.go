package realestate

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Field paths are gjson paths into a provider document, most specific
// first. The first usable value wins.

// firstFloat returns the first path that coerces to a non-zero number, or
// def. Zero counts as absent, matching providers that emit 0 for unknown
// metrics.
func firstFloat(doc gjson.Result, def float64, paths []string) float64 {
	for _, p := range paths {
		if f, ok := number(doc.Get(p)); ok && f != 0 {
			return f
		}
	}
	return def
}

func firstInt(doc gjson.Result, def int, paths []string) int {
	return int(firstFloat(doc, float64(def), paths))
}

// firstString returns the first non-empty string (numbers are formatted).
func firstString(doc gjson.Result, def string, paths []string) string {
	for _, p := range paths {
		r := doc.Get(p)
		switch r.Type {
		case gjson.String:
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
		case gjson.Number:
			return strconv.FormatFloat(r.Num, 'f', -1, 64)
		}
	}
	return def
}

// firstList returns the first non-empty list of objects.
func firstList(doc gjson.Result, paths []string) []gjson.Result {
	for _, p := range paths {
		if items := objects(doc.Get(p)); len(items) > 0 {
			return items
		}
	}
	return nil
}

// firstObject returns the first nested object found.
func firstObject(doc gjson.Result, paths []string) (gjson.Result, bool) {
	for _, p := range paths {
		if r := doc.Get(p); r.IsObject() {
			return r, true
		}
	}
	return gjson.Result{}, false
}

// anyPresent reports whether at least one path resolves to a non-null value.
func anyPresent(doc gjson.Result, groups ...[]string) bool {
	for _, paths := range groups {
		for _, p := range paths {
			if r := doc.Get(p); r.Exists() && r.Type != gjson.Null {
				return true
			}
		}
	}
	return false
}

func objects(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	var out []gjson.Result
	for _, item := range r.Array() {
		if item.IsObject() {
			out = append(out, item)
		}
	}
	return out
}

func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		return toFloat(r.Str)
	}
	return 0, false
}

// toFloat parses numeric strings such as "$525,000" or "4.5%".
func toFloat(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
