package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campaign-fulfillment/internal/adapter/host"
	"campaign-fulfillment/internal/adapter/memory"
	"campaign-fulfillment/internal/adapter/usecase"
	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/core/port/mocks"
	"campaign-fulfillment/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const taskBody = `{
	"advertiser": {
		"tenant": "0b1e5c9a-6d2f-4f43-9c1e-2a7b8d4e5f60",
		"externalId": "adv-9",
		"name": "Acme",
		"domain": "Acme.Example.com",
		"category": "retail"
	},
	"dateRange": {"start": "2024-03-01", "months": 2},
	"budget": {"monthlyImpressions": 5000, "cpmClient": "11.00", "cpmTenant": "7.25"},
	"creative": "https://cdn.example.com/spot.mp4",
	"landingPage": "https://acme.example.com/spring",
	"targeting": [{"type": "geo", "values": ["US", "CA"]}]
}`

func newServer(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	repos := usecase.Repositories{
		Documents:   store,
		Advertisers: store,
		Creatives:   store,
		Campaigns:   store,
		Flights:     store,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	inspector := mocks.NewMockCreativeInspector(t)
	inspector.EXPECT().Fingerprint(mock.Anything, mock.Anything).Return("0cc175b9c0f1b6a831c399e269772661", nil).Maybe()

	recon := usecase.NewReconciler(repos, m, logger)
	ops := usecase.NewHandlers(recon, inspector, logger)
	engine := usecase.NewEngine(recon, ops, mocks.NewMockNotifier(t), m, logger)
	leases := usecase.NewLeaseCoordinator(recon, ops, m, logger)
	runtime := host.New(engine, store, logger)

	return NewHandler(runtime, engine, leases, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, taskResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp taskResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)

	rec, resp := do(t, srv, http.MethodPost, "/api/v1/tasks?instanceId=t1", taskBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Status)
	assert.Equal(t, "t1", resp.Status.InstanceID)
	assert.Equal(t, port.RuntimeRunning, resp.Status.RuntimeStatus)
	require.NotNil(t, resp.State)
	assert.Equal(t, domain.OpAdvertiser, resp.State.Awaiting)
	assert.Equal(t, "acme.example.com", resp.State.Request.Advertiser.Domain)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks/t1/events/campaign", `{"externalCampaignId":"c"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks/t1/events/advertiser", `{"externalOrgId":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	steps := []struct{ event, body string }{
		{"advertiser", `{"externalOrgId":"org-9"}`},
		{"creative", `{"externalCreativeId":"spot"}`},
		{"campaign", `{"externalCampaignId":"c-t1"}`},
		{"flight", `{"externalCampaignId":"c-t1","externalFlightId":"march"}`},
		{"flight", `{"externalCampaignId":"c-t1","externalFlightId":"april","start":"2024-04-01"}`},
	}
	for _, step := range steps {
		rec, resp = do(t, srv, http.MethodPost, "/api/v1/tasks/t1/events/"+step.event, step.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.event, rec.Body.String())
	}
	assert.Equal(t, port.RuntimeCompleted, resp.Status.RuntimeStatus)
	assert.Equal(t, domain.StageComplete, resp.State.Stage)
	assert.Len(t, resp.State.Existing.Flights, 2)

	rec, resp = do(t, srv, http.MethodGet, "/api/v1/tasks/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.StageComplete), resp.Status.CustomStatus)

	rec, _ = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fulfillment_stage_transitions_total")
}

func TestStartTaskRejections(t *testing.T) {
	srv := newServer(t)

	rec, _ := do(t, srv, http.MethodPost, "/api/v1/tasks", `{"advertiser":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks?instanceId=@system", taskBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks?instanceId=dup", taskBody)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks?instanceId=dup", taskBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/tasks/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks/unknown/events/advertiser", `{"externalOrgId":"o"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeasesOverHTTP(t *testing.T) {
	srv := newServer(t)
	const p1, p2 = `{"provider":"p1","accessId":"a1"}`, `{"provider":"p2","accessId":"a2"}`

	rec, _ := do(t, srv, http.MethodPost, "/api/v1/leases/next", p1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/tasks?instanceId=t1", taskBody)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, resp := do(t, srv, http.MethodPost, "/api/v1/leases/next", p1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t1", resp.Status.InstanceID)
	require.NotNil(t, resp.State.Lease)
	assert.Equal(t, "p1", resp.State.Lease.Provider)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/leases/next", p2)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/leases/t1/renew", p2)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = do(t, srv, http.MethodPost, "/api/v1/leases/t1/renew", p1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", resp.State.Lease.AccessID)

	rec, _ = do(t, srv, http.MethodDelete, "/api/v1/leases/t1", p2)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp = do(t, srv, http.MethodDelete, "/api/v1/leases/t1", p1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.State.Lease)

	rec, _ = do(t, srv, http.MethodPost, "/api/v1/leases/t1/renew", `{"provider":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec, _ := do(t, newServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
