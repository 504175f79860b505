// Package auth handles authentication artifacts: browser cookies loaded from
// files or the environment, persisted captured sessions, and OAuth2 tokens.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Cookie is one normalized browser cookie, ready to attach to outbound
// requests or inject into a browser context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	Expires  float64 `json:"expirationDate,omitempty"`
}

// Credentials holds the authentication artifacts for one platform: either a
// cookie set or a bearer token. Pure data; no network calls.
type Credentials struct {
	Cookies     []Cookie
	BearerToken string
}

// HTTPCookies converts the cookie set for use with an HTTP client.
func (c Credentials) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: ck.Path, Domain: ck.Domain, Secure: ck.Secure})
	}
	return out
}

// LoadCookieFile reads cookies from a file in browser-export JSON (array or
// simple key/value object) or Netscape cookies.txt format. For Netscape
// files, only cookies whose domain matches one of domains are kept, and the
// domain is normalized to targetDomain.
func LoadCookieFile(path string, domains []string, targetDomain string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if cookies, err := ParseCookieJSON(data, targetDomain); err == nil {
		return cookies, nil
	}

	cookies := parseNetscapeCookies(string(data), domains, targetDomain)
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies parsed from %s", path)
	}
	return cookies, nil
}

// CookiesFromEnv reads a JSON cookie array from the named environment
// variable. Returns nil when unset.
func CookiesFromEnv(envVar, targetDomain string) ([]Cookie, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return nil, nil
	}
	return ParseCookieJSON([]byte(raw), targetDomain)
}

// ParseCookieJSON accepts either a browser-export array of cookie objects or
// a flat {"name": "value"} object normalized to targetDomain.
func ParseCookieJSON(data []byte, targetDomain string) ([]Cookie, error) {
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err == nil {
		return cookies, nil
	}

	var kv map[string]string
	if err := json.Unmarshal(data, &kv); err != nil {
		return nil, fmt.Errorf("cookie data is neither a JSON array nor an object: %w", err)
	}

	cookies = make([]Cookie, 0, len(kv))
	for name, value := range kv {
		cookies = append(cookies, Cookie{Name: name, Value: value, Domain: targetDomain, Path: "/"})
	}
	return cookies, nil
}

// parseNetscapeCookies parses the tab-separated cookies.txt format:
// domain, include-subdomains, path, secure, expiry, name, value.
func parseNetscapeCookies(content string, domains []string, targetDomain string) []Cookie {
	var cookies []Cookie

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		if !domainAllowed(parts[0], domains) {
			continue
		}

		domain := targetDomain
		if !strings.HasPrefix(parts[0], ".") {
			domain = strings.TrimPrefix(targetDomain, ".")
		}

		cookies = append(cookies, Cookie{
			Name:   parts[5],
			Value:  parts[6],
			Domain: domain,
			Path:   parts[2],
			Secure: strings.EqualFold(parts[3], "TRUE"),
		})
	}

	return cookies
}

func domainAllowed(domain string, allowed []string) bool {
	for _, d := range allowed {
		if domain == d || strings.HasSuffix(domain, d) {
			return true
		}
	}
	return false
}
