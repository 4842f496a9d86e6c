package bot

import (
	"guildsync/entity"
	"log/slog"
)

// SendBirthday posts one birthday announcement. Implements the announcer's
// messenger.
func (b *Bot) SendBirthday(channelID string, birthday entity.Birthday, message string) error {
	_, err := b.session.ChannelMessageSendEmbed(channelID, birthdayEmbed(birthday, message))
	return err
}

// SendDailyEvent posts the day's event. Implements the announcer's messenger.
func (b *Bot) SendDailyEvent(channelID string, event entity.Holiday) error {
	_, err := b.session.ChannelMessageSendEmbed(channelID, dailyEventEmbed(event))
	return err
}

// NotifyOps mirrors a rendered log line into the operations channel.
// Implements logger.Notifier. Failures are logged at debug only: anything
// louder would come straight back through the mirror.
func (b *Bot) NotifyOps(msg string, _ slog.Level) {
	if b.opsChannelID == "" || msg == "" {
		return
	}
	for _, part := range splitMessage(msg, maxDiscordMessageLen) {
		_, err := b.session.ChannelMessageSend(b.opsChannelID, part)
		if err != nil {
			b.log.Debug("ops notification failed", slog.String("channel", b.opsChannelID))
			return
		}
	}
}
