// Package notifier announces newly saved auction results.
//
// Announcements go to Twitter, to a Telegram chat, or, in dry-run mode, to a
// writer so they can be reviewed before anything is posted. One announcement
// covers a whole fetch: every tenor of the newest results in a single message.
package notifier
