package config

import (
	"errors"
	"os"
)

// TwitterCredentials are the OAuth1 user-context keys for posting tweets
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// TelegramCredentials identify the bot and the chat it posts to
type TelegramCredentials struct {
	BotToken string
	ChatID   string
}

// TwitterFromEnv reads TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN
// and TWITTER_ACCESS_SECRET
func TwitterFromEnv() (TwitterCredentials, error) {
	creds := TwitterCredentials{
		APIKey:       os.Getenv("TWITTER_API_KEY"),
		APISecret:    os.Getenv("TWITTER_API_SECRET"),
		AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return creds, errors.New("missing required Twitter credentials in environment variables")
	}
	return creds, nil
}

// TelegramFromEnv reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID
func TelegramFromEnv() (TelegramCredentials, error) {
	creds := TelegramCredentials{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
	if creds.BotToken == "" || creds.ChatID == "" {
		return creds, errors.New("missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID in environment")
	}
	return creds, nil
}
