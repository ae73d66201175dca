// Package telegram posts auction result announcements through the Telegram Bot API.
//
// Authentication requires a bot token (from @BotFather) and the chat ID of the
// channel or group to post to. Messages use Telegram's HTML parse mode.
package telegram
