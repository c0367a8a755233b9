package configs

import "strings"

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Store selects where records and instance documents live. The memory
// backend loses everything on restart and is meant for local runs.
type Store struct {
	Backend string `env:"BACKEND" envDefault:"postgres"`
}

// Kind returns the normalised backend name. Unknown values select postgres.
func (c Store) Kind() string {
	if strings.EqualFold(c.Backend, BackendMemory) {
		return BackendMemory
	}
	return BackendPostgres
}
