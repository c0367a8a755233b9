package configs

import (
	"net/url"
	"time"
)

// Notify configures failure notifications. Without WebhookURL failures are
// only logged.
type Notify struct {
	WebhookURL *url.URL      `env:"WEBHOOK_URL"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"5s"`
}
