package discord

import (
	"context"
	"fmt"
	"log"

	"server-warden/internal/config"
	"server-warden/internal/users"

	"github.com/bwmarrin/discordgo"
)

// Bot wires the Discord gateway to the reaction core: it owns the
// session, translates raw gateway payloads into the core's event
// shapes and dispatches them.
type Bot struct {
	dg  *discordgo.Session
	cfg *config.Config
	svc *users.Service
}

// NewBot creates the session. The service is attached in Run so the
// notifier (which needs the session) can be built in between.
func NewBot(cfg *config.Config) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Bot{dg: dg, cfg: cfg}, nil
}

// Notifier returns the outbound messenger bound to this session.
func (b *Bot) Notifier() *Notifier {
	return NewNotifier(b.dg)
}

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context, svc *users.Service) error {
	b.svc = svc

	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onMessageUpdate)
	b.dg.AddHandler(b.onGuildMemberAdd)
	b.dg.AddHandler(b.onGuildMemberUpdate)
	b.dg.AddHandler(b.onGuildMemberRemove)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[INFO] ✅ Bot %v is running on %d guild(s).", r.User.Username, len(r.Guilds))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID == "" {
		return
	}
	b.svc.HandleMessage(b.translateMessage(s, m.Message))
}

func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	// Embed unfurls and similar edits arrive without an author.
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID == "" {
		return
	}
	b.svc.HandleMessageEdit(b.translateMessage(s, m.Message))
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, g *discordgo.GuildMemberAdd) {
	b.svc.HandleJoin(g.GuildID, memberFrom(g.Member))
}

func (b *Bot) onGuildMemberUpdate(s *discordgo.Session, g *discordgo.GuildMemberUpdate) {
	if g.BeforeUpdate == nil {
		return
	}
	b.svc.HandleMemberUpdate(g.GuildID, memberFrom(g.BeforeUpdate), memberFrom(g.Member))
}

func (b *Bot) onGuildMemberRemove(s *discordgo.Session, g *discordgo.GuildMemberRemove) {
	b.svc.HandleLeave(g.GuildID, memberFrom(g.Member))
}

// translateMessage converts a raw gateway message into the core's
// shape, resolving channel name, presence activity and permissions
// from state where possible.
func (b *Bot) translateMessage(s *discordgo.Session, m *discordgo.Message) users.Message {
	author := users.Member{
		ID:            m.Author.ID,
		Username:      m.Author.Username,
		Discriminator: m.Author.Discriminator,
		Mention:       m.Author.Mention(),
		IsBot:         m.Author.Bot,
		RoleCount:     1, // the implicit everyone role
	}
	if m.Member != nil {
		author.Nickname = m.Member.Nick
		author.RoleCount = len(m.Member.Roles) + 1
	}
	if p, err := s.State.Presence(m.GuildID, m.Author.ID); err == nil && len(p.Activities) > 0 {
		author.ActivityName = p.Activities[0].Name
	}
	if perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID); err == nil {
		author.CanMentionEveryone = perms&discordgo.PermissionMentionEveryone != 0
	}

	mentions := make([]users.Member, 0, len(m.Mentions))
	for _, u := range m.Mentions {
		mentions = append(mentions, users.Member{
			ID:            u.ID,
			Username:      u.Username,
			Discriminator: u.Discriminator,
			Mention:       u.Mention(),
			IsBot:         u.Bot,
		})
	}

	return users.Message{
		ID:          m.ID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		ChannelName: channelName(s, m.ChannelID),
		Content:     m.Content,
		Author:      author,
		Mentions:    mentions,
	}
}

// channelName resolves a channel's name from state, falling back to
// the REST API.
func channelName(s *discordgo.Session, channelID string) string {
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			log.Println("[WARN] Failed to fetch channel:", err)
			return ""
		}
	}
	return channel.Name
}

// memberFrom converts a gateway member payload.
func memberFrom(m *discordgo.Member) users.Member {
	out := users.Member{Nickname: m.Nick}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.Discriminator = m.User.Discriminator
		out.Mention = m.User.Mention()
		out.IsBot = m.User.Bot
		out.AvatarURL = m.User.AvatarURL("")
	}
	return out
}
