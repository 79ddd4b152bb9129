package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
)

// DiscordSender is the part of *discordgo.Session used to send direct messages.
type DiscordSender interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSender = (*discordgo.Session)(nil)

// DiscordNotifier delivers reminders as direct messages to the owner's
// Discord user id.
type DiscordNotifier struct {
	session DiscordSender

	mu       sync.Mutex
	channels map[string]string
}

func NewDiscordNotifier(session DiscordSender) *DiscordNotifier {
	return &DiscordNotifier{
		session:  session,
		channels: make(map[string]string),
	}
}

func (n *DiscordNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	channelID, err := n.dmChannel(ctx, entry.OwnerID)
	if err != nil {
		return err
	}

	if _, err := n.session.ChannelMessageSend(channelID, Message(entry, eventAt), discordgo.WithContext(ctx)); err != nil {
		// The channel may be stale; open a fresh one next time.
		n.mu.Lock()
		delete(n.channels, entry.OwnerID)
		n.mu.Unlock()
		return fmt.Errorf("failed to send direct message: %w", err)
	}
	return nil
}

func (n *DiscordNotifier) dmChannel(ctx context.Context, userID string) (string, error) {
	n.mu.Lock()
	id, ok := n.channels[userID]
	n.mu.Unlock()
	if ok {
		return id, nil
	}

	channel, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to open direct message channel: %w", err)
	}

	n.mu.Lock()
	n.channels[userID] = channel.ID
	n.mu.Unlock()
	return channel.ID, nil
}

var _ reminder.Notifier = (*DiscordNotifier)(nil)
