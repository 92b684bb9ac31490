package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Cookie is a single browser cookie as exported by Cookie-Editor and similar
// extensions. Only the name and value matter for API requests; the rest is
// kept so a stored set round-trips cleanly.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Account is a named cookie set for the GoPro cloud
type Account struct {
	Name         string    `json:"name"`
	Cookies      []Cookie  `json:"cookies"`
	LastModified time.Time `json:"last_modified"`
}

// LoadCookieFile reads a JSON cookie export (an array of cookies) from path
func LoadCookieFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	if len(cookies) == 0 {
		return nil, errors.New("cookies file contains no cookies")
	}

	for _, c := range cookies {
		if c.Name == "" {
			return nil, errors.New("cookies file contains a cookie without a name")
		}
	}

	return cookies, nil
}

// CookieHeader builds the Cookie request header value from a cookie set
func CookieHeader(cookies []Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// SanitizeAccount creates a copy of the account with cookie values masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	masked := make([]Cookie, len(account.Cookies))
	for i, c := range account.Cookies {
		masked[i] = Cookie{
			Name:   c.Name,
			Value:  maskString(c.Value),
			Domain: c.Domain,
			Path:   c.Path,
		}
	}

	return &Account{
		Name:         account.Name,
		Cookies:      masked,
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
