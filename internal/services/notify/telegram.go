package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	applogger "SignalSmith/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes every composed signal to a fixed set of chats.
type TelegramNotifier struct {
	bot     Sender
	chatIDs []int64
	log     *applogger.Logger
}

// NewBot connects to the Bot API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramNotifier(bot Sender, chatIDs []int64, log *applogger.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs, log: log}
}

// Notify sends the formatted signal to every chat. One failed chat does not stop the rest.
func (n *TelegramNotifier) Notify(ctx context.Context, sig models.Signal) error {
	text := FormatSignal(sig)
	var errs []error
	for _, id := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn("telegram send failed", applogger.Int64("chat_id", id), applogger.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func directionEmoji(d models.Direction) string {
	switch d {
	case models.DirectionBuy:
		return "🟢"
	case models.DirectionSell:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatSignal renders a signal as a MarkdownV2 message.
func FormatSignal(sig models.Signal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *%s %s*\n\n", directionEmoji(sig.Direction),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ToUpper(sig.Symbol)),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, string(sig.Direction)))

	line := func(label, value string) {
		fmt.Fprintf(&sb, "*%s:* %s\n", label, tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, value))
	}
	if sig.HasTargets() {
		line("Entry", sig.EntryZone)
		line("Stop loss", sig.StopLoss)
		line("Take profit", sig.TakeProfit)
	} else {
		line("Watch range", sig.EntryZone)
	}
	line("Confidence", sig.Confidence)
	line("Risk", string(sig.RiskRating))
	if sig.Regime != "" {
		line("Regime", string(sig.Regime))
	}

	if sig.SentimentSummary != "" {
		fmt.Fprintf(&sb, "\n%s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, sig.SentimentSummary))
	}
	if len(sig.Interpretations) > 0 {
		keys := make([]string, 0, len(sig.Interpretations))
		for k := range sig.Interpretations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "• %s\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, k+": "+sig.Interpretations[k]))
		}
	}
	fmt.Fprintf(&sb, "\n_%s_", tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, sig.Disclaimer))
	return sb.String()
}

var _ domsvc.Notifier = (*TelegramNotifier)(nil)
