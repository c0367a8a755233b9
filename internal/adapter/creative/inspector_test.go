package creative

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsURLHash(t *testing.T) {
	i := NewInspector(false, nil, time.Second)

	sum, err := i.Fingerprint(context.Background(), "https://cdn.example.com/ad.mp4")
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	again, err := i.Fingerprint(context.Background(), "https://cdn.example.com/ad.mp4")
	require.NoError(t, err)
	assert.Equal(t, sum, again)

	other, err := i.Fingerprint(context.Background(), "https://cdn.example.com/other.mp4")
	require.NoError(t, err)
	assert.NotEqual(t, sum, other)
}

func TestFingerprintRejectsNonHTTP(t *testing.T) {
	i := NewInspector(false, nil, time.Second)
	for _, raw := range []string{"ftp://cdn.example.com/a.mp4", "/relative/a.mp4", "https://"} {
		_, err := i.Fingerprint(context.Background(), raw)
		assert.Error(t, err, raw)
	}
}

func TestFingerprintVerifiesReachability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/missing.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	i := NewInspector(true, srv.Client(), time.Second)
	_, err := i.Fingerprint(context.Background(), srv.URL+"/ad.mp4")
	require.NoError(t, err)

	_, err = i.Fingerprint(context.Background(), srv.URL+"/missing.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
