package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// How long an idle learner keeps their exclusion ring and session queue
	SittingTTL time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		SittingTTL: 30 * time.Minute,
	}
}
