package storagetypes

import (
	"time"
)

// User is the persisted record for a community member. Experience and
// Level only grow through the progression engine; Karma only grows
// through the thanks protocol.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Karma      int       `json:"karma"`
	Level      uint      `json:"level"`
	Experience uint      `json:"experience"`
	JoinDate   time.Time `json:"join_date"`
}

// Cooldown is the persisted form of a single cooldown entry. A
// permanent entry never expires by time comparison and must be removed
// explicitly.
type Cooldown struct {
	ExpiresAt time.Time `json:"expires_at"`
	Permanent bool      `json:"permanent,omitempty"`
}

// WardenState is the snapshot written on a fixed interval and read
// back once at startup. Only the registries that must survive a
// restart are included; the XP and thanks-grant cooldowns are short
// enough to be rebuilt from scratch.
type WardenState struct {
	MutedUsers             map[string]Cooldown `json:"muted_users"`
	ThanksReminderCooldown map[string]Cooldown `json:"thanks_reminder_cooldown"`
	CodeReminderCooldown   map[string]Cooldown `json:"code_reminder_cooldown"`
}
