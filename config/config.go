package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime knob. Flags win over environment variables,
// environment variables win over defaults.
type Config struct {
	ListenAddr string
	ListenPort int

	SnapshotDir string
	StaticDir   string
	LogDir      string
	DebugLevel  string

	IdleTurnTimeout    time.Duration
	RestartVoteTimeout time.Duration
	JanitorInterval    time.Duration

	// Seed fixes every table's shuffle source for deterministic replays.
	// Zero seeds each table from the clock.
	Seed int64
}

// Load parses flags and environment into a Config.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ListenAddr, "listen", envOr("PLAY9_LISTEN_ADDR", "0.0.0.0"), "Address to listen on")
	flag.IntVar(&cfg.ListenPort, "port", envOrInt("PLAY9_LISTEN_PORT", 9999), "Port to listen on")
	flag.StringVar(&cfg.SnapshotDir, "snapshots", envOr("PLAY9_SNAPSHOT_DIR", "/play9"), "Directory for table snapshot files")
	flag.StringVar(&cfg.StaticDir, "static", envOr("PLAY9_STATIC_DIR", "static"), "Directory with client assets")
	flag.StringVar(&cfg.LogDir, "logdir", envOr("PLAY9_LOG_DIR", ""), "Directory for rotated log files (empty = stderr only)")
	flag.StringVar(&cfg.DebugLevel, "debuglevel", envOr("PLAY9_DEBUG_LEVEL", "info"), "Logging level: trace, debug, info, warn, error")
	flag.DurationVar(&cfg.IdleTurnTimeout, "idleturn", envOrDuration("PLAY9_IDLE_TURN_TIMEOUT", 60*time.Second), "Idle-turn timeout before the server plays for an absent player")
	flag.DurationVar(&cfg.RestartVoteTimeout, "votetimeout", envOrDuration("PLAY9_RESTART_VOTE_TIMEOUT", 30*time.Second), "How long a restart vote stays open")
	flag.DurationVar(&cfg.JanitorInterval, "janitor", envOrDuration("PLAY9_JANITOR_INTERVAL", time.Minute), "Sweep interval for idle spectator-only tables")
	flag.Int64Var(&cfg.Seed, "seed", envOrInt64("PLAY9_SEED", 0), "Deterministic shuffle seed (0 = random)")
	flag.Parse()

	return cfg
}

// Bind returns the host:port the server listens on.
func (c *Config) Bind() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.ListenPort)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
