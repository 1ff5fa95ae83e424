// Package botlog is the bot's action log: a structured trail of
// moderation and reward events, written to the console and a rotated
// file. Process-level wiring noise stays on the standard logger; this
// log only records what the bot did to whom.
package botlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	z zerolog.Logger
}

// New creates a Logger writing to stdout and to path with rotation.
func New(path string) *Logger {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	z := zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	return &Logger{z: z}
}

// Action records a moderation/membership event.
func (l *Logger) Action(format string, args ...any) {
	l.z.Info().Str("kind", "action").Msgf(format, args...)
}

// Xp records one XP award with the numbers that produced it.
func (l *Logger) Xp(channel, username string, base, bonus, reduce float64, gain uint) {
	l.z.Debug().
		Str("kind", "xp").
		Str("channel", channel).
		Str("user", username).
		Float64("base", base).
		Float64("bonus", bonus).
		Float64("reduce", reduce).
		Uint("gain", gain).
		Msg("xp awarded")
}
