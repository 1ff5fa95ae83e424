package users

import (
	"fmt"
	"strings"
	"time"
)

// noticeTTL is how long most karma notices stay before self-deleting.
const noticeTTL = 120 * time.Second

// processThanks evaluates one message as a thanks candidate: matches
// the vocabulary, resolves mentioned recipients, applies grants with
// the self/bot exclusions and manages the grant and reminder cooldowns.
func (s *Service) processThanks(m Message) {
	// Only the home community participates in the karma economy.
	if m.GuildID != s.cfg.GuildID {
		return
	}
	if m.Author.IsBot {
		return
	}
	if !s.thanksRe.MatchString(m.Content) {
		return
	}

	mentions := dedupMembers(m.Mentions)
	authorID := m.Author.ID

	if len(mentions) == 0 {
		s.remindToMention(m)
		// Keep the message retryable: an edit adding mentions within
		// the window re-runs this evaluation.
		if !s.editableThanks.Has(m.ID) {
			s.editableThanks.AddPermanent(m.ID)
			s.editableThanks.RemoveAfter(m.ID, s.cfg.ThanksEditWindow)
		}
		return
	}

	// Acquiring the grant cooldown up front makes the gate atomic:
	// two copies of the same thanks racing through here cannot both
	// credit. The slot is released again on every path that credits
	// nobody, so a failed grant costs no cooldown.
	if !s.thanksCooldown.TryAcquire(authorID, s.cfg.ThanksCooldown) {
		wait := s.thanksCooldown.Remaining(authorID).Round(time.Second)
		s.temp(m.ChannelID, fmt.Sprintf(
			"%s you must wait %.0f seconds before giving another karma point.\n"+
				"(If you are thanking multiple people, include all their names in one thanks message.)",
			m.Author.Mention, wait.Seconds()), noticeTTL)
		return
	}
	granted := false
	defer func() {
		if !granted {
			s.thanksCooldown.Remove(authorID)
		}
	}()

	author, err := s.store.GetUser(authorID)
	if err != nil {
		s.alog.Action("Failed to fetch record for %s: %v", authorID, err)
		return
	}
	if author == nil {
		return
	}
	if author.JoinDate.Add(s.cfg.ThanksMinJoinTime).After(s.now()) {
		s.temp(m.ChannelID, fmt.Sprintf(
			"%s you must have been a member for at least %d minutes to give karma points.",
			m.Author.Mention, int(s.cfg.ThanksMinJoinTime.Minutes())), 140*time.Second)
		return
	}

	var mentionedSelf, mentionedBot bool
	var credited []string
	for _, target := range mentions {
		if target.IsBot {
			mentionedBot = true
			continue
		}
		if target.ID == authorID {
			mentionedSelf = true
			continue
		}
		if name, ok := s.grantKarma(target); ok {
			credited = append(credited, name)
		}
	}

	if mentionedSelf {
		s.temp(m.ChannelID, m.Author.Mention+" you can't give karma to yourself.", noticeTTL)
	}
	if mentionedBot {
		s.temp(m.ChannelID, fmt.Sprintf(
			"Very cute of you %s but I don't need karma :blush:\n"+
				"If you'd like to know what karma is about, type !karma", m.Author.Mention), noticeTTL)
	}

	s.editableThanks.Remove(m.ID)

	// No cooldown penalty when nobody was actually credited, so an
	// accidental self or bot mention doesn't lock the author out.
	if len(credited) == 0 {
		return
	}
	granted = true

	// Suppress the mention reminder for a while after a real thanks,
	// so a casual follow-up "thanks" doesn't trigger it. A permanent
	// opt-out stays permanent.
	if !s.thanksReminderCooldown.IsPermanent(authorID) {
		s.thanksReminderCooldown.Add(authorID, s.cfg.ThanksReminderCooldown)
	}

	summary := fmt.Sprintf("**%s** gave karma to **%s**", m.Author.Username, strings.Join(credited, ", "))
	if err := s.notifier.Send(m.ChannelID, summary); err != nil {
		s.alog.Action("Failed to announce karma grant: %v", err)
	}
	s.alog.Action("%s in channel %s", summary, m.ChannelName)
}

// grantKarma credits one recipient, lazily creating their record.
// Returns the recipient's stored username and whether the grant stuck.
func (s *Service) grantKarma(target Member) (string, bool) {
	rec, err := s.store.GetUser(target.ID)
	if err != nil {
		s.alog.Action("Failed to fetch record for %s: %v", target.ID, err)
		return "", false
	}
	if rec == nil {
		rec, err = s.store.CreateUser(newUserRecord(target, s.now()))
		if err != nil {
			s.alog.Action("Failed to create record for %s: %v", target.ID, err)
			return "", false
		}
	}

	rec.Karma++
	if err := s.store.UpdateUser(rec); err != nil {
		s.alog.Action("Failed to persist karma for %s: %v", target.ID, err)
		return "", false
	}
	return rec.Username, true
}

// remindToMention nudges the author to @mention the person they are
// thanking. General chat is exempt, as is anyone already on a karma
// cooldown or who opted out of the reminder.
func (s *Service) remindToMention(m Message) {
	authorID := m.Author.ID
	if m.ChannelID == s.cfg.GeneralChannelID {
		return
	}
	if s.thanksReminderCooldown.IsPermanent(authorID) ||
		s.thanksReminderCooldown.Has(authorID) ||
		s.thanksCooldown.Has(authorID) {
		return
	}

	s.thanksReminderCooldown.Add(authorID, s.cfg.ThanksReminderCooldown)
	s.temp(m.ChannelID, fmt.Sprintf(
		"%s , if you are thanking someone, please @mention them when you say \"thanks\" so they may receive karma for their help.\n"+
			"If you want me to stop reminding you about this, please type \"!disablethanksreminder\".",
		m.Author.Mention), noticeTTL)
}

// dedupMembers drops repeated mentions of the same user, keeping first
// occurrence order.
func dedupMembers(in []Member) []Member {
	seen := make(map[string]bool, len(in))
	out := make([]Member, 0, len(in))
	for _, m := range in {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
