package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at startup and immutable afterwards.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	ActionLogPath string `env:"ACTION_LOG_PATH" envDefault:"logs/actions.log"`

	// Home community. Events from any other guild are ignored.
	GuildID          string   `env:"GUILD_ID,required"`
	GeneralChannelID string   `env:"GENERAL_CHANNEL_ID,required"`
	WelcomeChannelID string   `env:"WELCOME_CHANNEL_ID"`
	MutedRoleID      string   `env:"MUTED_ROLE_ID"`
	NoXpChannelIDs   []string `env:"NO_XP_CHANNEL_IDS" envSeparator:","`
	CommunityName    string   `env:"COMMUNITY_NAME" envDefault:"the community"`

	ThanksWords            []string      `env:"THANKS_WORDS" envSeparator:"," envDefault:"thanks,thank you,thx,thnx,ty"`
	ThanksCooldown         time.Duration `env:"THANKS_COOLDOWN" envDefault:"10m"`
	ThanksReminderCooldown time.Duration `env:"THANKS_REMINDER_COOLDOWN" envDefault:"1h"`
	ThanksMinJoinTime      time.Duration `env:"THANKS_MIN_JOIN_TIME" envDefault:"10m"`
	ThanksEditWindow       time.Duration `env:"THANKS_EDIT_WINDOW" envDefault:"240s"`

	XpMinPerMessage int `env:"XP_MIN_PER_MESSAGE" envDefault:"10"`
	XpMaxPerMessage int `env:"XP_MAX_PER_MESSAGE" envDefault:"30"`
	XpMinCooldown   int `env:"XP_MIN_COOLDOWN" envDefault:"60"`  // seconds
	XpMaxCooldown   int `env:"XP_MAX_COOLDOWN" envDefault:"180"` // seconds

	// Game-balance tunables. The defaults reproduce the long-standing
	// reward behavior; treat them as knobs, not invariants.
	XpActivityPattern string  `env:"XP_ACTIVITY_PATTERN" envDefault:"Unity.+"`
	XpActivityDivisor float64 `env:"XP_ACTIVITY_DIVISOR" envDefault:"4"`
	XpKarmaScale      float64 `env:"XP_KARMA_SCALE" envDefault:"100"`
	XpRolePenalty     float64 `env:"XP_ROLE_PENALTY" envDefault:"0.9"`
	XpKarmaGapStep    float64 `env:"XP_KARMA_GAP_STEP" envDefault:"0.05"`
	XpKarmaGapCap     float64 `env:"XP_KARMA_GAP_CAP" envDefault:"0.9"`

	CodeReminderCooldown time.Duration `env:"CODE_REMINDER_COOLDOWN" envDefault:"1h"`

	MuteEvasionPenalty time.Duration `env:"MUTE_EVASION_PENALTY" envDefault:"72h"`
	SnapshotInterval   time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"10s"`

	RulesPath string         `env:"RULES_PATH" envDefault:"rules.json"`
	Rules     map[int]string `env:"-"`
}

// New loads configuration from the environment, with .env as fallback.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.XpMaxPerMessage <= cfg.XpMinPerMessage {
		return nil, fmt.Errorf("XP_MAX_PER_MESSAGE must be greater than XP_MIN_PER_MESSAGE")
	}
	if cfg.XpMaxCooldown <= cfg.XpMinCooldown {
		return nil, fmt.Errorf("XP_MAX_COOLDOWN must be greater than XP_MIN_COOLDOWN")
	}
	// Both are divisors in the XP formula.
	if cfg.XpActivityDivisor <= 0 {
		return nil, fmt.Errorf("XP_ACTIVITY_DIVISOR must be positive")
	}
	if cfg.XpKarmaScale <= 0 {
		return nil, fmt.Errorf("XP_KARMA_SCALE must be positive")
	}

	if cfg.WelcomeChannelID == "" {
		cfg.WelcomeChannelID = cfg.GeneralChannelID
	}

	rules, err := LoadRules(cfg.RulesPath)
	if err != nil {
		log.Println("[WARN] Failed to load rules file:", err)
		rules = map[int]string{}
	}
	cfg.Rules = rules

	return cfg, nil
}

type ruleEntry struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// LoadRules reads the ruleset file: a JSON array of {id, content}
// entries. Rule 0 is the global ruleset sent to new members.
func LoadRules(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []ruleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("invalid rules file: %w", err)
	}

	rules := make(map[int]string, len(entries))
	for _, e := range entries {
		rules[e.ID] = e.Content
	}
	return rules, nil
}
