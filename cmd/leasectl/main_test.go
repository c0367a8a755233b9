package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-fulfillment/internal/core/domain"
)

type recorded struct {
	method, path string
	claimant     domain.Claimant
}

func fakeService(t *testing.T, calls *[]recorded) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if body, _ := io.ReadAll(r.Body); len(body) > 0 {
			assert.NoError(t, json.Unmarshal(body, &rec.claimant))
		}
		*calls = append(*calls, rec)

		switch {
		case r.URL.Path == "/api/v1/leases/next" && rec.claimant.Provider == "busy":
			http.NotFound(w, r)
		case r.URL.Path == "/api/v1/leases/taken/renew":
			http.Error(w, "lease is held by another claimant", http.StatusConflict)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"state":{"stage":"AwaitingFlights"}}`))
		}
	}))
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { provider, accessID = "", "" })
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCommandsCallLeaseEndpoints(t *testing.T) {
	var calls []recorded
	srv := fakeService(t, &calls)
	defer srv.Close()

	out, _, err := run(t, "next", "--server", srv.URL, "--provider", "p1", "--access-id", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, `"stage": "AwaitingFlights"`)

	_, _, err = run(t, "renew", "i-1", "--server", srv.URL, "--provider", "p1", "--access-id", "a1")
	require.NoError(t, err)
	_, _, err = run(t, "break", "i-1", "--server", srv.URL, "--provider", "p1", "--access-id", "a1")
	require.NoError(t, err)
	_, _, err = run(t, "status", "i-1", "--server", srv.URL)
	require.NoError(t, err)

	require.Len(t, calls, 4)
	assert.Equal(t, recorded{http.MethodPost, "/api/v1/leases/next", domain.Claimant{Provider: "p1", AccessID: "a1"}}, calls[0])
	assert.Equal(t, recorded{http.MethodPost, "/api/v1/leases/i-1/renew", domain.Claimant{Provider: "p1", AccessID: "a1"}}, calls[1])
	assert.Equal(t, recorded{http.MethodDelete, "/api/v1/leases/i-1", domain.Claimant{Provider: "p1", AccessID: "a1"}}, calls[2])
	assert.Equal(t, recorded{method: http.MethodGet, path: "/api/v1/tasks/i-1"}, calls[3])
}

func TestNextWithNothingToClaim(t *testing.T) {
	var calls []recorded
	srv := fakeService(t, &calls)
	defer srv.Close()

	out, errOut, err := run(t, "next", "--server", srv.URL, "--provider", "busy", "--access-id", "a1")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "nothing to claim")
}

func TestRenewConflictIsAnError(t *testing.T) {
	var calls []recorded
	srv := fakeService(t, &calls)
	defer srv.Close()

	_, _, err := run(t, "renew", "taken", "--server", srv.URL, "--provider", "p2", "--access-id", "a2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestClaimantFlagsRequired(t *testing.T) {
	_, _, err := run(t, "next", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--provider")
}
