// Package attribution keeps the last-touch referrer signal of a visitor.
package attribution

import (
	"net/http"
	"net/url"
	"time"

	"quickearn/internal/constants"
)

// Store persists the last-touch referrer id. Writes overwrite any prior value.
type Store interface {
	SetReferrer(id string)
}

// CookieStore writes the referrer id to the visitor's browser.
type CookieStore struct {
	w   http.ResponseWriter
	now func() time.Time
}

// NewCookieStore returns a Store writing Set-Cookie headers to w.
// It must be used before the response header is written.
func NewCookieStore(w http.ResponseWriter) *CookieStore {
	return &CookieStore{w: w, now: time.Now}
}

// SetReferrer stores id under referrer_id for the whole site for 30 days.
// The value is query-escaped so every byte of id survives.
func (s *CookieStore) SetReferrer(id string) {
	if id == "" {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     constants.REFERRER_COOKIE_NAME,
		Value:    url.QueryEscape(id),
		Path:     constants.REFERRER_COOKIE_PATH,
		MaxAge:   int(constants.REFERRER_COOKIE_TTL / time.Second),
		Expires:  s.now().Add(constants.REFERRER_COOKIE_TTL),
		SameSite: http.SameSiteLaxMode,
	})
}

// ExtractReferrerID returns the ref query parameter of link, "" when absent.
func ExtractReferrerID(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return u.Query().Get(constants.REFERRER_QUERY_PARAM), nil
}
