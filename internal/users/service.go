// Package users is the bot's reaction core: XP progression, the karma
// ("thanks") economy, code-formatting nudges, mass-mention scolding
// and membership policing. It consumes gateway-independent events and
// talks to its collaborators (record store, outbound messenger, action
// log) only through interfaces.
package users

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"server-warden/internal/config"
	"server-warden/internal/cooldown"
	"server-warden/internal/storagetypes"
)

// Store is the user-record and snapshot store. GetUser returns
// (nil, nil) for an absent record; CreateUser keeps an existing record
// if one is already stored.
type Store interface {
	GetUser(id string) (*storagetypes.User, error)
	CreateUser(u storagetypes.User) (*storagetypes.User, error)
	UpdateUser(u *storagetypes.User) error
	LoadState() (*storagetypes.WardenState, error)
	SaveState(state *storagetypes.WardenState) error
}

// Notifier delivers outbound messages. Implementations own transport
// concerns such as rate limiting and retries.
type Notifier interface {
	Send(channelID, content string) error
	SendTemporary(channelID, content string, ttl time.Duration) error
	SendWelcome(channelID, username, discriminator, avatarURL string) error
	DirectMessage(userID, content string) error
	AddRole(guildID, userID, roleID string) error
}

// ActionLogger records what the bot did, for the audit trail.
type ActionLogger interface {
	Action(format string, args ...any)
	Xp(channel, username string, base, bonus, reduce float64, gain uint)
}

// Service owns the cooldown registries and dispatches inbound events
// to each feature handler in a fixed order.
type Service struct {
	cfg      *config.Config
	store    Store
	notifier Notifier
	alog     ActionLogger

	// rng is shared by concurrently dispatched handlers and rand.Rand
	// is not safe for concurrent use; draw only under rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time

	thanksRe     *regexp.Regexp
	activityRe   *regexp.Regexp
	noXpChannels map[string]bool

	codeFormattingExample string
	codeReminderExample   string

	xpCooldown             *cooldown.Registry
	thanksCooldown         *cooldown.Registry
	thanksReminderCooldown *cooldown.Registry
	codeReminderCooldown   *cooldown.Registry
	mutedUsers             *cooldown.Registry
	editableThanks         *cooldown.Registry
}

// NewService builds the reaction core. The thanks vocabulary and the
// activity bonus pattern are compiled here, once.
func NewService(cfg *config.Config, store Store, notifier Notifier, alog ActionLogger) (*Service, error) {
	thanksRe, err := newThanksMatcher(cfg.ThanksWords)
	if err != nil {
		return nil, err
	}

	activityRe, err := regexp.Compile(cfg.XpActivityPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid XP activity pattern: %w", err)
	}

	codeFormattingExample := "\\`\\`\\`cs\nWrite your code on a new line here.\n\\`\\`\\`\n"

	s := &Service{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		alog:     alog,

		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,

		thanksRe:     thanksRe,
		activityRe:   activityRe,
		noXpChannels: make(map[string]bool, len(cfg.NoXpChannelIDs)),

		codeFormattingExample: codeFormattingExample,
		codeReminderExample: codeFormattingExample +
			"\nSimple as that! If you'd like me to stop reminding you about this, simply type \"!disablecodetips\"",

		xpCooldown:             cooldown.New(),
		thanksCooldown:         cooldown.New(),
		thanksReminderCooldown: cooldown.New(),
		codeReminderCooldown:   cooldown.New(),
		mutedUsers:             cooldown.New(),
		editableThanks:         cooldown.New(),
	}

	for _, id := range cfg.NoXpChannelIDs {
		s.noXpChannels[id] = true
	}

	return s, nil
}

// RestoreState loads the persisted snapshot written by a previous run.
func (s *Service) RestoreState() error {
	state, err := s.store.LoadState()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	s.mutedUsers.Restore(state.MutedUsers)
	s.thanksReminderCooldown.Restore(state.ThanksReminderCooldown)
	s.codeReminderCooldown.Restore(state.CodeReminderCooldown)
	return nil
}

func (s *Service) persistState() error {
	return s.store.SaveState(&storagetypes.WardenState{
		MutedUsers:             s.mutedUsers.Snapshot(),
		ThanksReminderCooldown: s.thanksReminderCooldown.Snapshot(),
		CodeReminderCooldown:   s.codeReminderCooldown.Snapshot(),
	})
}

// RunSnapshotLoop persists the warden state on a fixed interval until
// ctx is done, then writes one final snapshot. Call from main.
func (s *Service) RunSnapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.persistState(); err != nil {
				log.Println("[ERR] Error writing final warden snapshot:", err)
			}
			return
		case <-ticker.C:
			if err := s.persistState(); err != nil {
				log.Println("[ERR] Error writing warden snapshot:", err)
			}
		}
	}
}

// RunCooldownSweeper clears expired cooldown entries every minute
// until ctx is done. Call from main.
func (s *Service) RunCooldownSweeper(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.xpCooldown.Sweep()
			s.thanksCooldown.Sweep()
			s.thanksReminderCooldown.Sweep()
			s.codeReminderCooldown.Sweep()
			s.mutedUsers.Sweep()
		}
	}
}

// HandleMessage fans one inbound message out to each feature handler.
// The order is fixed and the handlers are independent: a reaction from
// one never suppresses another, except that a recognized text command
// consumes the message entirely.
func (s *Service) HandleMessage(m Message) {
	if s.handleTextCommand(m) {
		return
	}
	s.awardXp(m)
	s.processThanks(m)
	s.codeCheck(m)
	s.scoldMassMention(m)
}

// HandleMessageEdit re-evaluates a thanks message that was registered
// as editable, so an edit adding mentions can still grant karma.
func (s *Service) HandleMessageEdit(m Message) {
	if s.editableThanks.Has(m.ID) {
		s.processThanks(m)
	}
}

func (s *Service) handleTextCommand(m Message) bool {
	if m.Author.IsBot {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(m.Content)) {
	case "!karma":
		s.sendKarmaProfile(m)
	case "!disablethanksreminder":
		s.thanksReminderCooldown.AddPermanent(m.Author.ID)
		s.temp(m.ChannelID, m.Author.Mention+" I will no longer remind you to @mention the people you thank.", 2*time.Minute)
	case "!disablecodetips":
		s.codeReminderCooldown.AddPermanent(m.Author.ID)
		s.temp(m.ChannelID, m.Author.Mention+" I will no longer remind you about code formatting.", 2*time.Minute)
	default:
		return false
	}
	return true
}

func (s *Service) sendKarmaProfile(m Message) {
	user, err := s.store.GetUser(m.Author.ID)
	if err != nil {
		s.alog.Action("Failed to fetch record for %s: %v", m.Author.ID, err)
		return
	}
	if user == nil {
		s.temp(m.ChannelID, m.Author.Mention+" I don't have a record for you yet. Say something first!", 2*time.Minute)
		return
	}

	low, high := XpBounds(user.Level)
	progress := 0.0
	if high > low {
		progress = (float64(user.Experience) - low) / (high - low) * 100
	}
	if progress < 0 {
		progress = 0
	}
	// Experience can overshoot the band until the next level-up check.
	if progress > 100 {
		progress = 100
	}

	s.temp(m.ChannelID, fmt.Sprintf(
		"%s karma **%d** | level **%d** | xp **%d** (%.0f%% into the current level)\nKarma is earned when someone thanks you with an @mention.",
		m.Author.Mention, user.Karma, user.Level, user.Experience, progress), 2*time.Minute)
}

// temp sends a self-deleting notice, logging delivery failures instead
// of propagating them: a lost notice never aborts event handling.
func (s *Service) temp(channelID, content string, ttl time.Duration) {
	if err := s.notifier.SendTemporary(channelID, content, ttl); err != nil {
		log.Println("[WARN] Failed to send notice:", err)
	}
}

// newUserRecord builds a fresh record for a member first seen now.
func newUserRecord(m Member, now time.Time) storagetypes.User {
	return storagetypes.User{
		UserID:   m.ID,
		Username: m.Username,
		JoinDate: now,
	}
}
