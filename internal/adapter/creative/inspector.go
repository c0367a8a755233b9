package creative

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campaign-fulfillment/internal/core/port"
)

// Inspector fingerprints creative URLs. The fingerprint is the hex md5 of
// the URL string, which keys the creative under its advertiser.
type Inspector struct {
	verify bool
	client *http.Client
}

var _ port.CreativeInspector = (*Inspector)(nil)

// NewInspector returns an Inspector. With verify set every URL must answer
// a HEAD request with a 2xx status before it is fingerprinted.
func NewInspector(verify bool, client *http.Client, timeout time.Duration) *Inspector {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Inspector{verify: verify, client: client}
}

func (i *Inspector) Fingerprint(ctx context.Context, creativeURL string) (string, error) {
	u, err := url.Parse(creativeURL)
	if err != nil {
		return "", fmt.Errorf("parse creative url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("creative url %q is not an absolute http(s) url", creativeURL)
	}

	if i.verify {
		if err = i.head(ctx, creativeURL); err != nil {
			return "", err
		}
	}

	sum := md5.Sum([]byte(creativeURL))
	return hex.EncodeToString(sum[:]), nil
}

func (i *Inspector) head(ctx context.Context, creativeURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, creativeURL, nil)
	if err != nil {
		return fmt.Errorf("create creative request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("reach creative %s: %w", creativeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("creative %s returned %d", creativeURL, resp.StatusCode)
	}
	return nil
}
