package utils

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// GenerateTrackedLink builds the public tracking URL for an app card.
// Visiting it records a click before redirecting to the partner.
func GenerateTrackedLink(siteURL, appID string, mine bool) (string, error) {
	if siteURL == "" {
		return "", fmt.Errorf("site URL is not configured")
	}
	if appID == "" {
		return "", fmt.Errorf("app id is required for a tracked link")
	}
	link := fmt.Sprintf("%s/go/%s", strings.TrimSuffix(siteURL, "/"), appID)
	if mine {
		link += "?mine=1"
	}
	return link, nil
}

// GenerateQRCode renders the tracked link of an app as a PNG.
func GenerateQRCode(siteURL, appID string, mine bool, size int) ([]byte, error) {
	link, err := GenerateTrackedLink(siteURL, appID, mine)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	// qrcode.Medium is the error correction level.
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode QR code for %q: %w", link, err)
	}
	return png, nil
}
