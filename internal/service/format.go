package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/trogers1052/signal-gateway/internal/models"
)

// formatIntentMessage formats an order intent into a Telegram HTML message
func formatIntentMessage(intent *models.OrderIntent) string {
	var emoji string
	switch intent.Action {
	case models.ActionBuy:
		emoji = "🟢"
	case models.ActionSell:
		emoji = "🔴"
	case models.ActionClose:
		emoji = "⚪"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("%s <b>%s %s</b> (%s)\n\n",
		emoji, strings.ToUpper(string(intent.Action)), html.EscapeString(intent.Symbol), intent.Transition))

	sb.WriteString(fmt.Sprintf("👤 Account: %s\n", html.EscapeString(intent.AccountName)))
	sb.WriteString(fmt.Sprintf("📍 Position: %s → %s\n", intent.Signal.PrevMarketPosition, intent.Signal.MarketPosition))
	sb.WriteString(fmt.Sprintf("📦 Size: %s (%s)\n", intent.Size.String(), intent.QtyType))
	sb.WriteString(fmt.Sprintf("💵 Price: %s\n", intent.Price.String()))

	// Option targets
	if intent.Delta1 != nil || intent.Delta2 != nil || intent.MinExpiry != nil {
		sb.WriteString("\n🎯 <b>Option Targets:</b>\n")
		if intent.Delta1 != nil {
			sb.WriteString(fmt.Sprintf("  • Open delta: %.2f\n", *intent.Delta1))
		}
		if intent.Delta2 != nil {
			sb.WriteString(fmt.Sprintf("  • Record delta: %.2f\n", *intent.Delta2))
		}
		if intent.MinExpiry != nil {
			sb.WriteString(fmt.Sprintf("  • Min expiry: %d days\n", *intent.MinExpiry))
		}
	}

	if c := intent.Signal.Comment; c != nil && *c != "" {
		sb.WriteString(fmt.Sprintf("\n💬 %s\n", html.EscapeString(truncate(*c, 200))))
	}

	sb.WriteString(fmt.Sprintf("\n🕐 %s", intent.Timestamp.Format("2006-01-02 15:04:05 MST")))

	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
