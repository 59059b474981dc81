package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/pipeline"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

type fakeProvider struct {
	status    Status
	nodes     []domain.Node
	announces int
	telemetry int
}

func (f *fakeProvider) Status() Status         { return f.status }
func (f *fakeProvider) Nodes() []domain.Node   { return f.nodes }
func (f *fakeProvider) RequestAnnounce() bool  { f.announces++; return true }
func (f *fakeProvider) RequestTelemetry() bool { f.telemetry++; return false }

func newTestServer(p Provider) *Server {
	gin.SetMode(gin.TestMode)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("shoreline_tx_packets_total 3\n"))
	})
	return NewServer(":0", p, metrics)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(&fakeProvider{})
	if rec := do(t, s, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "shoreline_tx_packets_total 3\n" {
		t.Fatalf("unexpected metrics response %d %q", rec.Code, rec.Body.String())
	}
}

func TestStateDocument(t *testing.T) {
	p := &fakeProvider{status: Status{
		Node:   domain.Identity{ID: 0xabc, Name: "Baltic-abc"},
		Radio:  "loopback",
		Uplink: pipeline.UplinkStats{Sent: 4},
		Sensors: map[string]SensorStatus{
			"acoustic": {Driver: "simulated", Capacity: 20, Uplink: 2},
		},
		Directory: DirectoryStatus{Nodes: 1, Capacity: 20},
	}}
	rec := do(t, newTestServer(p), http.MethodGet, "/api/v1/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("state status %d", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Node.Name != "Baltic-abc" || got.Uplink.Sent != 4 || got.Sensors["acoustic"].Uplink != 2 {
		t.Fatalf("unexpected state %+v", got)
	}
	if got.Environment != nil || got.Journal != nil {
		t.Fatalf("optional sections should be omitted")
	}
}

func TestNodesList(t *testing.T) {
	p := &fakeProvider{nodes: []domain.Node{{ID: 0x1234, Name: "pier", LastSeen: time.Unix(10, 0)}}}
	rec := do(t, newTestServer(p), http.MethodGet, "/api/v1/nodes")
	var body struct {
		Nodes []domain.Node `json:"nodes"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Nodes[0].Name != "pier" {
		t.Fatalf("unexpected nodes %+v", body)
	}

	rec = do(t, newTestServer(&fakeProvider{}), http.MethodGet, "/api/v1/nodes")
	if rec.Body.String() != `{"count":0,"nodes":[]}` {
		t.Fatalf("empty list should encode as array, got %s", rec.Body.String())
	}
}

func TestEnvironmentMissing(t *testing.T) {
	rec := do(t, newTestServer(&fakeProvider{}), http.MethodGet, "/api/v1/environment")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first sample, got %d", rec.Code)
	}
	p := &fakeProvider{status: Status{Environment: &domain.EnvironmentalSample{WaterQuality: 80}}}
	rec = do(t, newTestServer(p), http.MethodGet, "/api/v1/environment")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAnnounceAndTelemetryRequests(t *testing.T) {
	p := &fakeProvider{}
	s := newTestServer(p)
	if rec := do(t, s, http.MethodPost, "/api/v1/announce"); rec.Code != http.StatusAccepted {
		t.Fatalf("announce status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/telemetry"); rec.Code != http.StatusAccepted {
		t.Fatalf("telemetry status %d", rec.Code)
	}
	if p.announces != 1 || p.telemetry != 1 {
		t.Fatalf("requests not forwarded: %+v", p)
	}
}
