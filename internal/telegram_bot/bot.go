package telegram_bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"backend/internal/config"
	"backend/internal/models"
)

// AlertBot pushes flagged-turn alerts to a moderation chat. A nil
// *AlertBot is valid and does nothing, so callers never branch on
// whether alerting is configured.
type AlertBot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	throttle *rate.Limiter
	logger   *zap.Logger
}

// NewAlertBot creates the bot, or returns (nil, nil) when alerting is
// disabled in config.
func NewAlertBot(cfg *config.Config, logger *zap.Logger) (*AlertBot, error) {
	if !cfg.Alerting.Enabled || cfg.Alerting.TelegramBotToken == "" {
		logger.Info("Telegram alerting is disabled (alerting.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Alerting.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &AlertBot{
		api:    botAPI,
		chatID: cfg.Alerting.ChatID,
		// A burst of flags from one misbehaving session must not flood
		// the moderation chat.
		throttle: rate.NewLimiter(rate.Limit(1), 5),
		logger:   logger,
	}, nil
}

// NotifyFlag sends one alert message for a flagged turn. Failures are
// logged and swallowed; alerting never affects ingestion.
func (b *AlertBot) NotifyFlag(ctx context.Context, turn *models.ConversationTurn, flag *models.FlaggedItem) {
	if b == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		return
	}
	if !b.throttle.Allow() {
		b.logger.Warn("Alert dropped by throttle",
			zap.Int64("turn_id", turn.ID),
			zap.String("student_id", turn.StudentID))
		return
	}

	msg := tgbotapi.NewMessage(b.chatID, formatAlert(turn, flag))
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send flag alert",
			zap.Int64("turn_id", turn.ID),
			zap.Error(err))
		return
	}

	b.logger.Info("Flag alert sent",
		zap.Int64("turn_id", turn.ID),
		zap.String("severity", flag.Severity))
}

func formatAlert(turn *models.ConversationTurn, flag *models.FlaggedItem) string {
	excerpt := turn.Message
	if len(excerpt) > 200 {
		excerpt = excerpt[:200] + "..."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Flagged turn [%s/%s]\n", flag.Severity, flag.Reason))
	sb.WriteString(fmt.Sprintf("Student: %s\n", turn.StudentID))
	sb.WriteString(fmt.Sprintf("Session: %s\n", turn.SessionID))
	sb.WriteString(fmt.Sprintf("Turn ID: %d\n\n", turn.ID))
	sb.WriteString(excerpt)
	return sb.String()
}
