package constants

import "time"

// Click statuses.
const (
	CLICK_STATUS_PENDING   = "pending"
	CLICK_STATUS_CONFIRMED = "confirmed"
	CLICK_STATUS_REJECTED  = "rejected"
)

// Attribution cookie.
const (
	REFERRER_COOKIE_NAME = "referrer_id"
	REFERRER_COOKIE_PATH = "/"
	REFERRER_COOKIE_TTL  = 30 * 24 * time.Hour

	// REFERRER_QUERY_PARAM is the query parameter of an outbound referral
	// link that carries the referrer id.
	REFERRER_QUERY_PARAM = "ref"
)

// Campaign tagging appended to every outbound referral link.
const (
	UTM_SOURCE = "quickearn"
	UTM_MEDIUM = "app_card"

	// PLACEHOLDER_LINK marks an app without a usable destination.
	PLACEHOLDER_LINK = "#"
)

// Payouts.
const (
	DEFAULT_PAYOUT_THRESHOLD = 100.0
	CURRENCY_SYMBOL          = "₹"
	PAYOUT_REFERENCE_PREFIX  = "QUICKEARN-PAYOUT-"
	PAYOUT_STATUS_SIMULATED  = "simulated"
)

// Telemetry event names.
const (
	EVENT_REFERRAL_CLICK = "referral_click"
	EVENT_REFERRAL_SYNC  = "referral_sync"
	UNKNOWN_APP_NAME     = "Unknown App"
)

// Auth.
const (
	// ACCESS_TOKEN_COOKIE is the cookie the hosted auth provider stores the
	// user's access token in.
	ACCESS_TOKEN_COOKIE = "sb-access-token"
)

// Listing limits.
const (
	ADMIN_CLICKS_DEFAULT_LIMIT = 20
	ADMIN_CLICKS_MAX_LIMIT     = 500
	BOT_PENDING_LIST_LIMIT     = 10
	EXPORT_CLICKS_LIMIT        = 5000
)

// Telegram callback data prefixes.
const (
	CALLBACK_PREFIX_RECONCILE = "rc" // rc:<status>:<clickID>
	CALLBACK_SEPARATOR        = ":"
)
