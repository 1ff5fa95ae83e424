package users

import (
	"fmt"
)

// HandleJoin creates a record for the new member and either welcomes
// them or, when they are evading an active mute, re-applies it with an
// escalated expiry.
func (s *Service) HandleJoin(guildID string, mem Member) {
	if guildID != s.cfg.GuildID {
		return
	}

	if _, err := s.store.CreateUser(newUserRecord(mem, s.now())); err != nil {
		s.alog.Action("Failed to create record for joining user %s: %v", mem.ID, err)
	}

	if s.mutedUsers.Has(mem.ID) {
		if err := s.notifier.AddRole(guildID, mem.ID, s.cfg.MutedRoleID); err != nil {
			s.alog.Action("Failed to re-apply muted role to %s: %v", mem.ID, err)
		}
		s.alog.Action("Currently muted user rejoined - %s - `%s#%s` - ID : `%s`",
			mem.Mention, mem.Username, mem.Discriminator, mem.ID)

		penaltyHours := int(s.cfg.MuteEvasionPenalty.Hours())
		if err := s.notifier.Send(s.cfg.GeneralChannelID, fmt.Sprintf(
			"%s tried to rejoin the server to avoid their mute. Mute time increased by %d hours.",
			mem.Mention, penaltyHours)); err != nil {
			s.alog.Action("Failed to send mute-evasion callout: %v", err)
		}

		// Overwrite, not extend: the clock restarts from now.
		s.mutedUsers.Add(mem.ID, s.cfg.MuteEvasionPenalty)
		return
	}

	s.alog.Action("User joined - %s - `%s#%s` - ID : `%s`",
		mem.Mention, mem.Username, mem.Discriminator, mem.ID)

	if err := s.notifier.SendWelcome(s.cfg.WelcomeChannelID, mem.Username, mem.Discriminator, mem.AvatarURL); err != nil {
		s.alog.Action("Failed to post welcome for %s: %v", mem.ID, err)
	}

	intro := "Hello and welcome to " + s.cfg.CommunityName + "!\n" +
		"Hope you enjoy your stay.\n" +
		"Here are some rules to respect to keep the community friendly, please read them carefully."
	if err := s.notifier.DirectMessage(mem.ID, intro); err != nil {
		s.alog.Action("Failed to DM introduction to %s: %v", mem.ID, err)
		return
	}
	if rules, ok := s.cfg.Rules[0]; ok {
		if err := s.notifier.DirectMessage(mem.ID, rules); err != nil {
			s.alog.Action("Failed to DM rules to %s: %v", mem.ID, err)
		}
	}
}

// HandleMemberUpdate logs nickname and avatar changes.
func (s *Service) HandleMemberUpdate(guildID string, old, current Member) {
	if guildID != s.cfg.GuildID {
		return
	}

	if old.Nickname != current.Nickname {
		s.alog.Action("User %s#%s changed their nickname to %s#%s",
			old.DisplayName(), old.Discriminator,
			current.DisplayName(), current.Discriminator)
	}

	if old.AvatarURL != current.AvatarURL && current.AvatarURL != "" {
		s.alog.Action("User %s updated their avatar: %s", current.Username, current.AvatarURL)
	}
}

// HandleLeave logs the departure with how long the member stayed.
func (s *Service) HandleLeave(guildID string, mem Member) {
	if guildID != s.cfg.GuildID {
		return
	}

	user, err := s.store.GetUser(mem.ID)
	if err != nil {
		s.alog.Action("Failed to fetch record for leaving user %s: %v", mem.ID, err)
	}

	var stayed string
	if user != nil {
		elapsed := s.now().Sub(user.JoinDate)
		days := int(elapsed.Hours()) / 24
		hours := int(elapsed.Hours()) % 24
		if days > 1 {
			stayed = fmt.Sprintf("%d days %d hours", days, hours)
		} else {
			stayed = fmt.Sprintf("%d hours", hours)
		}
	} else {
		stayed = "0 hours"
	}

	s.alog.Action("User left - after %s - %s - `%s#%s` - ID : `%s`",
		stayed, mem.Mention, mem.Username, mem.Discriminator, mem.ID)
}
