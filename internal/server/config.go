package server

import (
	"fmt"
	"time"
)

// Config holds server configuration
type Config struct {
	// Network settings
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	MaxClients int    `yaml:"max_clients" json:"max_clients"`

	// Token, when set, must be presented by every viewer as the token query parameter or as
	// a bearer token.
	Token string `yaml:"token" json:"-"`

	// Message settings
	SendBuffer   int           `yaml:"send_buffer" json:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval" json:"ping_interval"`

	// SnapshotEvery streams one snapshot out of every SnapshotEvery ticks.
	SnapshotEvery int `yaml:"snapshot_every" json:"snapshot_every"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:    "127.0.0.1:8080",
		MaxClients:    256,
		SendBuffer:    64,
		WriteTimeout:  10 * time.Second,
		PingInterval:  30 * time.Second,
		SnapshotEvery: 1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MaxClients <= 0:
		return fmt.Errorf("%w: max clients %d", ErrInvalidConfig, c.MaxClients)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send buffer %d", ErrInvalidConfig, c.SendBuffer)
	case c.WriteTimeout <= 0 || c.PingInterval <= 0:
		return fmt.Errorf("%w: non-positive timeouts", ErrInvalidConfig)
	case c.SnapshotEvery <= 0:
		return fmt.Errorf("%w: snapshot every %d ticks", ErrInvalidConfig, c.SnapshotEvery)
	}
	return nil
}
