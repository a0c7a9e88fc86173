// Package bot delivers generation pass alerts to a Telegram chat.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"recurring-planner/internal/service"
)

// maxListedErrors keeps alerts under Telegram's message size limit.
const maxListedErrors = 20

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter posts a summary of failing generation passes to one chat.
type Alerter struct {
	api    sender
	chatID int64
	logger *zap.Logger
}

func NewAlerter(token string, chatID int64, logger *zap.Logger) (*Alerter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("Alert bot authorized", zap.String("account", api.Self.UserName))
	return newAlerter(api, chatID, logger), nil
}

func newAlerter(api sender, chatID int64, logger *zap.Logger) *Alerter {
	return &Alerter{api: api, chatID: chatID, logger: logger}
}

// NotifyPass implements service.PassNotifier.
func (a *Alerter) NotifyPass(ctx context.Context, report service.PassReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(a.chatID, FormatPassReport(report))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	a.logger.Debug("Pass alert sent",
		zap.String("pass_id", report.PassID),
		zap.Int64("chat_id", a.chatID),
	)
	return nil
}

// FormatPassReport renders report as Telegram HTML.
func FormatPassReport(report service.PassReport) string {
	var b strings.Builder

	b.WriteString("⚠️ <b>Recurring task generation</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s · pass <code>%s</code>\n\n", report.Now.UTC().Format(time.RFC3339), html.EscapeString(report.PassID)))
	b.WriteString(fmt.Sprintf("Templates: %d · generated: %d · failed: %d\n",
		report.TemplatesScanned, report.GeneratedCount, len(report.TemplateErrors)))
	if report.BudgetExhausted {
		b.WriteString("⏳ pass budget exhausted, remaining templates deferred\n")
	}
	if report.Interrupted {
		b.WriteString("⏹ pass interrupted\n")
	}

	if len(report.TemplateErrors) > 0 {
		b.WriteByte('\n')
	}
	for i, te := range report.TemplateErrors {
		if i == maxListedErrors {
			b.WriteString(fmt.Sprintf("… and %d more\n", len(report.TemplateErrors)-maxListedErrors))
			break
		}
		b.WriteString(fmt.Sprintf("• #%d <b>%s</b>", te.TemplateID, html.EscapeString(string(te.Kind))))
		if te.Err != nil {
			b.WriteString(": " + html.EscapeString(te.Err.Error()))
		}
		b.WriteByte('\n')
	}

	return strings.TrimSpace(b.String())
}
