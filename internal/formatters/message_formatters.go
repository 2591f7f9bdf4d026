package formatters

import (
	"fmt"
	"strings"

	"quickearn/internal/models"
	"quickearn/internal/rewards"
	"quickearn/internal/utils"
)

const (
	separator = "─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─"
)

var statusIcons = map[models.ClickStatus]string{
	models.ClickPending:   "⏳",
	models.ClickConfirmed: "✅",
	models.ClickRejected:  "❌",
}

// FormatClickLine renders one click as a single Markdown line.
func FormatClickLine(c models.Click) string {
	user := "anonymous"
	if c.UserID.Valid {
		user = utils.ShortID(c.UserID.String)
	}
	line := fmt.Sprintf("%s *%s* · %s · `%s` · %s",
		statusIcons[c.Status],
		utils.EscapeTelegramMarkdown(c.App),
		utils.EscapeTelegramMarkdown(user),
		utils.ShortID(c.ID),
		c.Timestamp.UTC().Format("02.01.2006 15:04"))
	if c.Meta != nil && c.Meta.ReferrerID != "" {
		line += fmt.Sprintf(" · ref %s", utils.EscapeTelegramMarkdown(c.Meta.ReferrerID))
	}
	return line
}

// FormatPendingClicks renders the pending review list.
func FormatPendingClicks(clicks []models.Click) string {
	if len(clicks) == 0 {
		return "✨ No pending clicks. Everything is reconciled."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏳ *PENDING CLICKS (%d)*\n", len(clicks)))
	b.WriteString(separator + "\n")
	for i, c := range clicks {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, FormatClickLine(c)))
	}
	b.WriteString(separator + "\n")
	b.WriteString("Use the buttons below to confirm or reject a click.")
	return b.String()
}

// FormatStats renders the per-status click counts.
func FormatStats(counts []models.ClickStatusCount) string {
	byStatus := map[models.ClickStatus]int{}
	total := 0
	for _, c := range counts {
		byStatus[c.Status] = c.Count
		total += c.Count
	}
	var b strings.Builder
	b.WriteString("📊 *CLICK STATISTICS*\n")
	b.WriteString(separator + "\n")
	for _, s := range []models.ClickStatus{models.ClickPending, models.ClickConfirmed, models.ClickRejected} {
		b.WriteString(fmt.Sprintf(" •  %s %s: %d\n", statusIcons[s], s, byStatus[s]))
	}
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("Total: *%d*", total))
	return b.String()
}

// FormatReconciliationNotice is sent to admin chats after every reconciliation.
func FormatReconciliationNotice(req rewards.Request, res rewards.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *Click %s*\n", statusIcons[res.Click.Status], utils.EscapeTelegramMarkdown(string(res.Click.Status))))
	b.WriteString(fmt.Sprintf(" •  Click: `%s`\n", req.ClickID))
	b.WriteString(fmt.Sprintf(" •  User: `%s`\n", req.UserID))
	b.WriteString(fmt.Sprintf(" •  App: %s\n", utils.EscapeTelegramMarkdown(res.Click.App)))
	if res.Credited > 0 {
		b.WriteString(fmt.Sprintf(" •  Credited: %s\n", utils.FormatRupees(res.Credited)))
	}
	b.WriteString(separator + "\n")
	b.WriteString(utils.EscapeTelegramMarkdown(res.Message))
	return b.String()
}
