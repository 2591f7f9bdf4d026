package attribution

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferrerID(t *testing.T) {
	id, err := ExtractReferrerID("https://cred.club/invite?ref=RAHUL42&x=1")
	require.NoError(t, err)
	assert.Equal(t, "RAHUL42", id)

	id, err = ExtractReferrerID("https://cred.club/invite")
	require.NoError(t, err)
	assert.Equal(t, "", id)

	_, err = ExtractReferrerID("http://[::1")
	assert.Error(t, err)
}

func TestCookieStoreSetReferrer(t *testing.T) {
	rec := httptest.NewRecorder()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewCookieStore(rec)
	store.now = func() time.Time { return fixed }

	store.SetReferrer("RAHUL42")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "referrer_id", c.Name)
	assert.Equal(t, "RAHUL42", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 30*24*60*60, c.MaxAge)
	assert.Equal(t, fixed.Add(30*24*time.Hour).Unix(), c.Expires.Unix())
}

func TestCookieStoreIgnoresEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookieStore(rec).SetReferrer("")
	assert.Empty(t, rec.Result().Cookies())
}

func TestCookieStoreLastTouchWins(t *testing.T) {
	rec := httptest.NewRecorder()
	store := NewCookieStore(rec)
	store.SetReferrer("FIRST")
	store.SetReferrer("SECOND")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	// the browser keeps the last Set-Cookie for the same name and path
	assert.Equal(t, "SECOND", cookies[1].Value)
	assert.Equal(t, cookies[0].Name, cookies[1].Name)
	assert.Equal(t, cookies[0].Path, cookies[1].Path)
}

func TestCookieStoreKeepsEveryByteOfTheReferrer(t *testing.T) {
	for _, id := range []string{"ab;cd", "réf", `a"b`, "a b,c\\d"} {
		t.Run(id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewCookieStore(rec).SetReferrer(id)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)

			got, err := url.QueryUnescape(cookies[0].Value)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}
