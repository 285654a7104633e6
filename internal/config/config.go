package config

import (
	"os"
	"time"
)

// Config holds client settings. The timing knobs are policy, not behavior:
// defaults match the production ordering window, tests shrink them.
type Config struct {
	// APIBaseURL is the root of the remote ordering service.
	APIBaseURL string

	// StateDir is where the cookie records and the pending order are kept.
	// Empty means "use the OS user config dir".
	StateDir string

	// StatusPollInterval is the cadence of the recurring status poll.
	StatusPollInterval time.Duration

	// DeadlineWarnThreshold marks the countdown as imminent below this.
	DeadlineWarnThreshold time.Duration

	// OpenedMessageTTL is how long the "ordering just opened" notice stays up.
	OpenedMessageTTL time.Duration

	// WarningTTL is how long the imminent-deadline warning stays up.
	WarningTTL time.Duration

	// ExpirySettleDelay is the pause between the countdown hitting zero and
	// the single follow-up status refetch.
	ExpirySettleDelay time.Duration

	// NextOpeningBuffer is added to the announced opening time before the
	// wake-up refetch, so the server has actually flipped by then.
	NextOpeningBuffer time.Duration

	// SubmitTimeout bounds the order submission request.
	SubmitTimeout time.Duration
}

func Load() *Config {
	return &Config{
		APIBaseURL:            getEnv("FRIET_API_URL", "https://nice-ethical-egret.ngrok-free.app"),
		StateDir:              getEnv("FRIET_STATE_DIR", ""),
		StatusPollInterval:    getDuration("FRIET_POLL_INTERVAL", 20*time.Second),
		DeadlineWarnThreshold: getDuration("FRIET_WARN_THRESHOLD", 5*time.Minute),
		OpenedMessageTTL:      getDuration("FRIET_OPENED_TTL", 30*time.Second),
		WarningTTL:            getDuration("FRIET_WARNING_TTL", 15*time.Second),
		ExpirySettleDelay:     getDuration("FRIET_SETTLE_DELAY", 10*time.Second),
		NextOpeningBuffer:     getDuration("FRIET_OPENING_BUFFER", time.Second),
		SubmitTimeout:         getDuration("FRIET_SUBMIT_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
