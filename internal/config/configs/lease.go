package configs

import "time"

// Lease configures worker leases on running instances.
type Lease struct {
	TTL time.Duration `env:"TTL" envDefault:"5m"`
}
