package model

const (
	DefaultConfigVersion        = 1
	DefaultRespawnTickMillis    = int64(500)
	DefaultNotifyCooldownMillis = int64(1500)

	// MinNotifyCooldownMillis is the floor applied to notice cooldowns.
	MinNotifyCooldownMillis = int64(100)

	DefaultGatherAmount       = 1
	DefaultRespawnDelayMillis = int64(5000)
)

// Config is the loaded block regeneration configuration.
type Config struct {
	Version              int
	Enabled              bool
	RespawnTickMillis    int64 // poll cadence hint for the caller's timer
	NotifyCooldownMillis int64
	Definitions          []*Definition
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Version:              DefaultConfigVersion,
		Enabled:              true,
		RespawnTickMillis:    DefaultRespawnTickMillis,
		NotifyCooldownMillis: DefaultNotifyCooldownMillis,
	}
}
