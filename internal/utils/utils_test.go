package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	enc, err := c.Encrypt("u1@upi")
	require.NoError(t, err)
	assert.NotContains(t, enc, "u1@upi")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "u1@upi", dec)

	other, err := NewCipher(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	_, err = other.Decrypt(enc)
	assert.Error(t, err)

	_, err = c.Decrypt("zz")
	assert.Error(t, err)
}

func TestNilCipherPassesThrough(t *testing.T) {
	var c *Cipher
	enc, err := c.Encrypt("u1@upi")
	require.NoError(t, err)
	assert.Equal(t, "u1@upi", enc)
	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "u1@upi", dec)
}

func TestNewCipherRejectsShortKey(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	assert.Error(t, err)
}

func TestValidateUPIID(t *testing.T) {
	got, err := ValidateUPIID("  rahul.k-99@okaxis ")
	require.NoError(t, err)
	assert.Equal(t, "rahul.k-99@okaxis", got)

	for _, bad := range []string{"", "no-at-sign", "@upi", "a@", "x@upi", "name@ok axis"} {
		_, err := ValidateUPIID(bad)
		assert.Error(t, err, bad)
	}
}

func TestLinkHelpers(t *testing.T) {
	assert.False(t, IsUsableLink(""))
	assert.False(t, IsUsableLink(" # "))
	assert.True(t, IsUsableLink("https://cred.club"))

	assert.True(t, IsAbsoluteHTTPURL("https://cred.club/x?ref=1"))
	assert.False(t, IsAbsoluteHTTPURL("cred.club"))
	assert.False(t, IsAbsoluteHTTPURL("ftp://cred.club"))

	assert.Equal(t, "12345678...", ShortID("1234567890"))
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "₹150", FormatRupees(150))
	assert.Equal(t, "₹99.5", FormatRupees(99.5))
	assert.Equal(t, "40", FormatAmount(40))
}

func TestEscapeTelegramMarkdown(t *testing.T) {
	assert.Equal(t, "user\\_one@upi", EscapeTelegramMarkdown("user_one@upi"))
	assert.Equal(t, "\\*bold\\* \\[x]", EscapeTelegramMarkdown("*bold* [x]"))
}

func TestGenerateQRCode(t *testing.T) {
	link, err := GenerateTrackedLink("https://quickearn.in/", "app-1", true)
	require.NoError(t, err)
	assert.Equal(t, "https://quickearn.in/go/app-1?mine=1", link)

	png, err := GenerateQRCode("https://quickearn.in", "app-1", false, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))

	_, err = GenerateQRCode("", "app-1", false, 128)
	assert.Error(t, err)
}
