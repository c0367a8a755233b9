package configs

import "time"

// Creative configures the creative URL check. With Verify set the URL must
// answer a HEAD request with a 2xx status before it is fingerprinted.
type Creative struct {
	Verify  bool          `env:"VERIFY" envDefault:"false"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}
