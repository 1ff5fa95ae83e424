package users

// Member is the gateway-independent shape of a guild member as seen on
// an event. Only the fields the core reacts to are carried over.
type Member struct {
	ID            string
	Username      string
	Discriminator string
	Nickname      string
	Mention       string
	AvatarURL     string
	IsBot         bool

	// Author-only context, filled for message events.
	ActivityName       string // current rich-presence activity, if any
	RoleCount          int    // includes the implicit everyone role
	CanMentionEveryone bool
}

// DisplayName returns the nickname if set, otherwise the username.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Username
}

// Message is the gateway-independent shape of an inbound chat message.
type Message struct {
	ID          string
	GuildID     string
	ChannelID   string
	ChannelName string
	Content     string
	Author      Member
	Mentions    []Member
}
