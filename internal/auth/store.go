package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// CookieStore persists cookies captured by the interactive login flow.
type CookieStore struct {
	path string
	// requiredNames are the session cookies that must be present for the
	// store to be considered valid (e.g. auth_token and ct0 for X).
	requiredNames []string
	// domains restricts which cookies are handed out for requests.
	domains []string
}

// StoredCookies is the on-disk format.
type StoredCookies struct {
	Cookies    []Cookie  `json:"cookies"`
	CapturedAt time.Time `json:"captured_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path.
func NewCookieStore(path string, requiredNames, domains []string) *CookieStore {
	return &CookieStore{path: path, requiredNames: requiredNames, domains: domains}
}

// Save persists cookies to disk.
// TODO: Encrypt cookies at rest
func (cs *CookieStore) Save(cookies []Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	// Track the earliest expiration among the session cookies.
	var earliest time.Time
	for _, c := range cookies {
		if !cs.isRequired(c.Name) || c.Expires == 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliest,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk.
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid checks that stored cookies exist, have not expired, and include
// every required session cookie.
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	for _, name := range cs.requiredNames {
		found := false
		for _, c := range stored.Cookies {
			if c.Name == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Clear removes stored cookies.
func (cs *CookieStore) Clear() error {
	err := os.Remove(cs.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Cookies returns the stored cookies scoped to the store's domains.
func (cs *CookieStore) Cookies() ([]Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var out []Cookie
	for _, c := range stored.Cookies {
		if domainAllowed(c.Domain, cs.domains) {
			out = append(out, c)
		}
	}

	return out, nil
}

func (cs *CookieStore) isRequired(name string) bool {
	for _, n := range cs.requiredNames {
		if n == name {
			return true
		}
	}
	return false
}
