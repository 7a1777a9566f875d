package adminapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/go-ospfd/ospfd/internal/adminapi"
	"github.com/go-ospfd/ospfd/internal/ospf"
	"github.com/go-ospfd/ospfd/internal/sched"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) *ospf.Router {
	t.Helper()

	loop := sched.NewLoop(discardLogger(), 16)
	router := ospf.NewRouter(ospf.RouterConfig{RouterID: 0x01010101}, loop, nil, nil, discardLogger())

	area := ospf.NewArea(0, ospf.AreaDefault, discardLogger())
	router.AddArea(area)

	iface := ospf.NewInterface(ospf.IfConfig{
		Name:     "eth0",
		Type:     ospf.IfTypeBroadcast,
		Addr:     netip.MustParsePrefix("10.0.0.1/24"),
		Priority: 1,
	}, area, router, discardLogger())
	area.AddInterface(iface)
	iface.Deliver(ospf.IfEventInterfaceUp)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	return router
}

func TestHandleAreas(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	srv := httptest.NewServer(adminapi.NewRouter(router, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/areas")
	if err != nil {
		t.Fatalf("GET /areas error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var areas []ospf.AreaSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&areas); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("len(areas) = %d, want 1", len(areas))
	}
	if areas[0].ID != "0.0.0.0" {
		t.Errorf("areas[0].ID = %q, want 0.0.0.0", areas[0].ID)
	}
	if len(areas[0].Interfaces) != 1 {
		t.Fatalf("len(areas[0].Interfaces) = %d, want 1", len(areas[0].Interfaces))
	}
	if areas[0].Interfaces[0].Name != "eth0" {
		t.Errorf("Interfaces[0].Name = %q, want eth0", areas[0].Interfaces[0].Name)
	}
}

func TestHandleLSDBRequiresArea(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	srv := httptest.NewServer(adminapi.NewRouter(router, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/lsdb")
	if err != nil {
		t.Fatalf("GET /lsdb error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleLSDBUnknownArea(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	srv := httptest.NewServer(adminapi.NewRouter(router, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/lsdb?area=9.9.9.9")
	if err != nil {
		t.Fatalf("GET /lsdb error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	srv := httptest.NewServer(adminapi.NewRouter(router, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/routes")
	if err != nil {
		t.Fatalf("GET /routes error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var routes []ospf.RouteSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleNeighborsEmpty(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	srv := httptest.NewServer(adminapi.NewRouter(router, discardLogger()))
	defer srv.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(srv.URL + "/neighbors")
	if err != nil {
		t.Fatalf("GET /neighbors error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
