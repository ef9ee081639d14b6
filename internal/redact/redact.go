// Package redact masks credentials before they reach logs, reports or
// command output. Assistant MCP settings routinely carry API tokens in
// env blocks and URLs.
package redact

import (
	"net/url"
	"strings"
)

// Placeholder replaces values too short to show a suffix of.
const Placeholder = "********"

// minSuffixLen is the shortest value Mask keeps a four character suffix
// of. Shorter values are replaced entirely.
const minSuffixLen = 16

// keyParts mark a key as sensitive when its upper-cased name contains one.
var keyParts = []string{
	"TOKEN",
	"SECRET",
	"PASSWORD",
	"PASSWD",
	"KEY",
	"AUTH",
	"CREDENTIAL",
	"PRIVATE",
	"COOKIE",
}

// tokenPrefixes identify well-known credential formats by value alone.
var tokenPrefixes = []string{
	"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_",
	"glpat-",
	"sk-",
	"AKIA", "ASIA",
	"AIza",
	"hf_",
	"xoxa-", "xoxb-", "xoxp-", "xoxr-",
}

// SensitiveKey reports whether key names a credential, e.g. API_KEY or
// githubToken.
func SensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, part := range keyParts {
		if strings.Contains(upper, part) {
			return true
		}
	}
	return false
}

// LooksLikeToken reports whether value starts with a known token prefix.
func LooksLikeToken(value string) bool {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// Mask hides all but the last four characters of value, or all of it
// when value is shorter than 16 bytes.
func Mask(value string) string {
	if len(value) < minSuffixLen {
		return Placeholder
	}
	return "****" + value[len(value)-4:]
}

// Value masks value when key or value looks sensitive and returns it
// unchanged otherwise.
func Value(key, value string) string {
	if value != "" && (SensitiveKey(key) || LooksLikeToken(value)) {
		return Mask(value)
	}
	return value
}

// Env returns a copy of env with sensitive values masked.
func Env(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = Value(k, v)
	}
	return out
}

// URL masks the password and sensitive query parameters of rawURL.
// Unparseable input is returned unchanged.
func URL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return rawURL
	}
	changed := false
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			u.User = url.UserPassword(u.User.Username(), Mask(pw))
			changed = true
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k, vs := range q {
			for i, v := range vs {
				if masked := Value(k, v); masked != v {
					vs[i] = masked
					changed = true
				}
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return rawURL
	}
	return u.String()
}
