package formatters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quickearn/internal/models"
	"quickearn/internal/rewards"
)

var ts = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func TestFormatClickLine(t *testing.T) {
	line := FormatClickLine(models.Click{
		ID: "0f6c1d2e-aaaa-bbbb", UserID: models.NewNullString("user_1234567"), App: "CRED",
		Status: models.ClickPending, Timestamp: ts, Meta: &models.ClickMeta{ReferrerID: "RAHUL42"},
	})
	assert.Equal(t, "⏳ *CRED* · user\\_123... · `0f6c1d2e...` · 02.05.2026 09:30 · ref RAHUL42", line)

	anon := FormatClickLine(models.Click{ID: "c1", App: "Groww", Status: models.ClickRejected, Timestamp: ts})
	assert.Contains(t, anon, "anonymous")
	assert.Contains(t, anon, "❌")
}

func TestFormatPendingClicks(t *testing.T) {
	assert.Contains(t, FormatPendingClicks(nil), "No pending clicks")

	text := FormatPendingClicks([]models.Click{
		{ID: "c1", App: "CRED", Status: models.ClickPending, Timestamp: ts},
		{ID: "c2", App: "Groww", Status: models.ClickPending, Timestamp: ts},
	})
	assert.Contains(t, text, "PENDING CLICKS (2)")
	assert.Contains(t, text, "1. ⏳ *CRED*")
	assert.Contains(t, text, "2. ⏳ *Groww*")
}

func TestFormatStats(t *testing.T) {
	text := FormatStats([]models.ClickStatusCount{
		{Status: models.ClickConfirmed, Count: 3},
		{Status: models.ClickPending, Count: 7},
	})
	assert.Contains(t, text, "⏳ pending: 7")
	assert.Contains(t, text, "✅ confirmed: 3")
	assert.Contains(t, text, "❌ rejected: 0")
	assert.Contains(t, text, "Total: *10*")
}

func TestFormatReconciliationNotice(t *testing.T) {
	text := FormatReconciliationNotice(
		rewards.Request{ClickID: "c1", UserID: "u1", Status: "confirmed"},
		rewards.Result{
			Message:  "Click status updated to confirmed. Reward credited. Payout of ₹150 to u1@upi would be initiated.",
			Click:    models.Click{ID: "c1", App: "CRED", Status: models.ClickConfirmed},
			Credited: 150,
		})
	assert.Contains(t, text, "✅ *Click confirmed*")
	assert.Contains(t, text, "Credited: ₹150")
	assert.Contains(t, text, "u1@upi would be initiated")
}
