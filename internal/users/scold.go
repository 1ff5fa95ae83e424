package users

import (
	"strings"
	"time"
)

// scoldMassMention calls out members who try to ping everyone without
// the permission to do so.
func (s *Service) scoldMassMention(m Message) {
	if m.Author.IsBot || m.Author.CanMentionEveryone {
		return
	}
	if !strings.Contains(m.Content, "@everyone") && !strings.Contains(m.Content, "@here") {
		return
	}

	s.temp(m.ChannelID, "That is very rude of you to try and alert **everyone** on the server "+m.Author.Mention+"!\n"+
		"Thankfully, you do not have permission to do so. If you are asking a question, people will help you when they have time.",
		5*time.Minute)
}
