package notifier

import (
	"context"
	"fmt"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/egtbills/tbill-yields/internal/config"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/yield"
)

// TwitterNotifier posts results to Twitter
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a Twitter notifier with OAuth1 user credentials
func NewTwitterNotifier(creds config.TwitterCredentials) *TwitterNotifier {
	cfg := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := cfg.Client(oauth1.NoContext, token)
	return &TwitterNotifier{client: twitter.NewClient(httpClient)}
}

// Notify posts a single tweet summarizing the records
func (n *TwitterNotifier) Notify(ctx context.Context, records []yield.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tweet, _, err := n.client.Statuses.Update(formatAnnouncement(records), nil)
	if err != nil {
		return fmt.Errorf("failed to post tweet: %w", err)
	}
	logger.Info("posted results to Twitter", logger.Fields{"tweet_id": tweet.IDStr, "records": len(records)})
	return nil
}
