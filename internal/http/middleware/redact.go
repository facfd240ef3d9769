package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactOptions configures the scrubber used by Logger.
type RedactOptions struct {
	// MaskHeaders are replaced wholesale (case-insensitive). Authorization,
	// Cookie and Set-Cookie are always masked.
	MaskHeaders []string
	// MaskParams are query parameters whose values are replaced wholesale.
	// customer_name, name, phone and email are always masked.
	MaskParams []string
}

var (
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+(?:@|%40)[a-z0-9.\-]+\.[a-z]{2,}`)
	// Ten or more digits, optionally grouped by spaces, dots, dashes or
	// parentheses. A run glued to a word or dash (RES-20250704-0042) is an
	// id, not a phone.
	phoneRE = regexp.MustCompile(`(^|[^\w-])(\+?(?:\d[\s.\-()]*){9,}\d)`)
)

type redactor struct {
	maskHeaders map[string]struct{}
	maskParams  map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{
		maskHeaders: set("authorization", "cookie", "set-cookie"),
		maskParams:  set("customer_name", "name", "phone", "email"),
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.maskHeaders[h] = struct{}{}
		}
	}
	for _, p := range opts.MaskParams {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			r.maskParams[p] = struct{}{}
		}
	}
	return r
}

// scrub masks named query parameters first, then any email or phone-shaped
// run left in s.
func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	if strings.Contains(s, "=") {
		parts := strings.Split(s, "&")
		for i, p := range parts {
			k, _, ok := strings.Cut(p, "=")
			if ok {
				if _, masked := r.maskParams[strings.ToLower(k)]; masked {
					parts[i] = k + "=[REDACTED]"
				}
			}
		}
		s = strings.Join(parts, "&")
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "${1}[REDACTED:phone]")
}

func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.maskHeaders[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
