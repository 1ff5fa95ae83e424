package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"server-warden/pkg/sendlimit"

	"github.com/bwmarrin/discordgo"
)

const defaultAvatarURL = "https://cdn.discordapp.com/embed/avatars/0.png"

// Notifier implements the core's outbound messaging contract over a
// discordgo session. Sends are paced by an adaptive limiter and
// retried on Discord rate-limit responses.
type Notifier struct {
	dg  *discordgo.Session
	lim *sendlimit.Limiter
}

func NewNotifier(dg *discordgo.Session) *Notifier {
	return &Notifier{
		dg:  dg,
		lim: sendlimit.New(5, 1, 20, 1, 0.5),
	}
}

// retryableSendErr classifies Discord rate-limit responses as
// retryable; everything else aborts the send.
func retryableSendErr(err error) bool {
	var rl *discordgo.RateLimitError
	return errors.As(err, &rl)
}

func (n *Notifier) send(channelID, content string) (*discordgo.Message, error) {
	var msg *discordgo.Message
	err := sendlimit.WithRetry(context.Background(), func() error {
		var err error
		msg, err = n.dg.ChannelMessageSend(channelID, content)
		return err
	}, n.lim, 3, retryableSendErr)
	return msg, err
}

// Send posts content to a channel.
func (n *Notifier) Send(channelID, content string) error {
	_, err := n.send(channelID, content)
	return err
}

// SendTemporary posts content and deletes it after ttl.
func (n *Notifier) SendTemporary(channelID, content string, ttl time.Duration) error {
	msg, err := n.send(channelID, content)
	if err != nil {
		return err
	}

	time.AfterFunc(ttl, func() {
		if err := n.dg.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Println("[WARN] Failed to delete temporary message:", err)
		}
	})
	return nil
}

// SendWelcome posts the new-member embed. A missing avatar falls back
// to the default Discord avatar.
func (n *Notifier) SendWelcome(channelID, username, discriminator, avatarURL string) error {
	if avatarURL == "" {
		avatarURL = defaultAvatarURL
	}

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Welcome to the server **%s#%s**!", username, discriminator),
		Color:       0x12D687,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    username,
			IconURL: avatarURL,
		},
	}

	return sendlimit.WithRetry(context.Background(), func() error {
		_, err := n.dg.ChannelMessageSendEmbed(channelID, embed)
		return err
	}, n.lim, 3, retryableSendErr)
}

// DirectMessage opens (or reuses) the DM channel to a user and sends
// content there.
func (n *Notifier) DirectMessage(userID, content string) error {
	ch, err := n.dg.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	return n.Send(ch.ID, content)
}

// AddRole grants a role to a guild member.
func (n *Notifier) AddRole(guildID, userID, roleID string) error {
	return n.dg.GuildMemberRoleAdd(guildID, userID, roleID)
}
