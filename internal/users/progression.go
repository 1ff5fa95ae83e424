package users

import (
	"fmt"
	"math"
	"time"
)

// XpBounds returns the experience band [low, high) a user occupies at
// the given level. Reaching high is the threshold to level up; low is
// only used to display progress through the band.
func XpBounds(level uint) (low, high float64) {
	return xpCurve(level + 1), xpCurve(level + 2)
}

func xpCurve(n uint) float64 {
	x := float64(n)
	return 70 - 139.5*x + 69.5*x*x
}

// XpReport carries the numbers behind one XP award, for the action log.
type XpReport struct {
	Base   float64
	Bonus  float64
	Reduce float64
	Gain   uint
}

// computeXp applies the gain formula to one message. Pure: all
// randomness is drawn by the caller.
//
// The final gain is rounded half away from zero (math.Round), so a
// result landing exactly on .5 still counts toward the next boundary.
func (s *Service) computeXp(base float64, karma int, level uint, roleCount int, activity string) XpReport {
	bonus := 0.0
	if activity != "" && s.activityRe.MatchString(activity) {
		bonus += base / s.cfg.XpActivityDivisor
	}
	bonus += base * (1 + float64(karma)/s.cfg.XpKarmaScale)

	// Members holding only the implicit everyone role earn less.
	if roleCount < 2 {
		base *= s.cfg.XpRolePenalty
	}

	// Lower the gain when karma lags behind level, capped so nobody is
	// reduced below 10% of the computed award.
	reduce := 1.0
	if karma < int(level) {
		reduce = 1 - math.Min(s.cfg.XpKarmaGapCap, float64(int(level)-karma)*s.cfg.XpKarmaGapStep)
	}

	return XpReport{
		Base:   base,
		Bonus:  bonus,
		Reduce: reduce,
		Gain:   uint(math.Round((base + bonus) * reduce)),
	}
}

// awardXp grants experience for one message, sets the per-user XP
// cooldown and runs the level-up check.
func (s *Service) awardXp(m Message) {
	if m.Author.IsBot {
		return
	}
	if s.noXpChannels[m.ChannelID] {
		return
	}

	s.rngMu.Lock()
	wait := s.cfg.XpMinCooldown + s.rng.Intn(s.cfg.XpMaxCooldown-s.cfg.XpMinCooldown)
	base := float64(s.cfg.XpMinPerMessage + s.rng.Intn(s.cfg.XpMaxPerMessage-s.cfg.XpMinPerMessage))
	s.rngMu.Unlock()

	// The cooldown gate doubles as the concurrency gate: of several
	// messages from the same author racing through here, exactly one
	// acquires the slot and awards.
	if !s.xpCooldown.TryAcquire(m.Author.ID, time.Duration(wait)*time.Second) {
		return
	}

	user, err := s.store.GetUser(m.Author.ID)
	if err != nil {
		s.xpCooldown.Remove(m.Author.ID)
		s.alog.Action("Failed to fetch record for %s: %v", m.Author.ID, err)
		return
	}
	if user == nil {
		// First sighting: create the record, award on the next
		// message. No award happened, so release the slot.
		s.xpCooldown.Remove(m.Author.ID)
		if _, err := s.store.CreateUser(newUserRecord(m.Author, s.now())); err != nil {
			s.alog.Action("Failed to create record for %s: %v", m.Author.ID, err)
		}
		return
	}

	report := s.computeXp(base, user.Karma, user.Level, m.Author.RoleCount, m.Author.ActivityName)

	user.Experience += report.Gain
	if err := s.store.UpdateUser(user); err != nil {
		s.alog.Action("Failed to persist XP for %s: %v", m.Author.ID, err)
		return
	}

	s.alog.Xp(m.ChannelName, m.Author.Username, report.Base, report.Bonus, report.Reduce, report.Gain)

	s.CheckLevelUp(m)
}

// CheckLevelUp promotes the author by exactly one level when their
// experience has reached the top of the current band, and announces
// it. Overshooting several bands still yields a single increment per
// call. Callable whenever experience may have changed.
func (s *Service) CheckLevelUp(m Message) {
	user, err := s.store.GetUser(m.Author.ID)
	if err != nil || user == nil {
		return
	}

	_, high := XpBounds(user.Level)
	if float64(user.Experience) < high {
		return
	}

	user.Level++
	if err := s.store.UpdateUser(user); err != nil {
		s.alog.Action("Failed to persist level-up for %s: %v", m.Author.ID, err)
		return
	}

	s.temp(m.ChannelID, fmt.Sprintf("**%s** has leveled up!", m.Author.Username), time.Minute)
}
