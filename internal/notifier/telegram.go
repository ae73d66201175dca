package notifier

import (
	"context"

	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/telegram"
	"github.com/egtbills/tbill-yields/internal/yield"
)

// TelegramNotifier posts results to a Telegram chat
type TelegramNotifier struct {
	client    *telegram.Client
	sourceURL string
}

// NewTelegramNotifier creates a Telegram notifier. sourceURL is linked in messages.
func NewTelegramNotifier(client *telegram.Client, sourceURL string) *TelegramNotifier {
	return &TelegramNotifier{client: client, sourceURL: sourceURL}
}

// Notify sends one message summarizing the records
func (n *TelegramNotifier) Notify(ctx context.Context, records []yield.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := n.client.SendMessage(ctx, telegram.FormatResults(records, n.sourceURL)); err != nil {
		return err
	}
	logger.Info("posted results to Telegram", logger.Fields{"records": len(records)})
	return nil
}
