package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// upiRegex matches a Virtual Payment Address: handle@provider.
var upiRegex = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z][a-zA-Z0-9]{1,63}$`)

// ValidateUPIID trims and checks a UPI id, returning it normalized.
func ValidateUPIID(upiID string) (string, error) {
	upiID = strings.TrimSpace(upiID)
	if upiID == "" {
		return "", fmt.Errorf("UPI ID is required")
	}
	if !upiRegex.MatchString(upiID) {
		return "", fmt.Errorf("UPI ID must look like name@bank")
	}
	return upiID, nil
}

// IsUsableLink reports whether link can be navigated to: non-empty and not the placeholder.
func IsUsableLink(link string) bool {
	link = strings.TrimSpace(link)
	return link != "" && link != "#"
}

// IsAbsoluteHTTPURL reports whether raw parses as an http(s) URL with a host.
func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ShortID shortens an opaque id for display, e.g. "3f2a9c1d...".
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
