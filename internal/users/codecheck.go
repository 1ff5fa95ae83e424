package users

import (
	"regexp"
	"strings"
	"time"
)

// codeMarkRe finds a backtick-delimited span with content between the
// backticks. A heuristic, not a parser: the goal is catching most
// large unformatted code pastes, not correctness.
var codeMarkRe = regexp.MustCompile("(?s).*?`[^`].*?`")

// codeCheck nudges authors who appear to paste code without fences, or
// with an untagged fence. Gated by the author's own reminder cooldown.
func (s *Service) codeCheck(m Message) {
	if m.Author.IsBot {
		return
	}
	if s.codeReminderCooldown.Has(m.Author.ID) {
		return
	}

	content := m.Content
	hasCodeMarks := codeMarkRe.MatchString(content)
	hasBraces := strings.Contains(content, "{") && strings.Contains(content, "}")

	switch {
	case !hasCodeMarks && hasBraces:
		s.codeReminderCooldown.Add(m.Author.ID, s.cfg.CodeReminderCooldown)
		s.temp(m.ChannelID,
			m.Author.Mention+" are you trying to post code? If so, please place 3 backticks \\`\\`\\` at the beginning and end of your code, like so:\n"+
				s.codeReminderExample, 10*time.Minute)

	case hasCodeMarks && hasBraces &&
		strings.Contains(content, "```") &&
		!strings.Contains(strings.ToLower(content), "```cs"):
		s.temp(m.ChannelID,
			m.Author.Mention+" Don't forget to add \"cs\" after your first 3 backticks so that your code receives syntax highlighting:\n"+
				s.codeReminderExample, 8*time.Minute)
		s.codeReminderCooldown.Add(m.Author.ID, s.cfg.CodeReminderCooldown)
	}
}
