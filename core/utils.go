package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings cleans every item of `ss`, dropping empty and duplicated ones. Order is preserved.
func CleanStrings(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	res := make([]string, 0, len(ss))
	for _, s := range ss {
		s = CleanString(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		res = append(res, s)
	}
	return res
}

// Now returns the current UTC time truncated to microseconds (postgres precision).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Localized is a text available in the three UI languages.
type Localized struct {
	RU string `json:"ru"`
	KK string `json:"kk"`
	EN string `json:"en"`
}

func (l Localized) IsEmpty() bool {
	return l.RU == "" && l.KK == "" && l.EN == ""
}

// Clean trims every translation and fills the missing ones from the first available (en, ru, kk).
func (l Localized) Clean() Localized {
	l.RU, l.KK, l.EN = CleanString(l.RU), CleanString(l.KK), CleanString(l.EN)
	var fallback string
	for _, s := range []string{l.EN, l.RU, l.KK} {
		if s != "" {
			fallback = s
			break
		}
	}
	if l.RU == "" {
		l.RU = fallback
	}
	if l.KK == "" {
		l.KK = fallback
	}
	if l.EN == "" {
		l.EN = fallback
	}
	return l
}
