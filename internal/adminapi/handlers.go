package adminapi

import (
	"fmt"
	"net/http"
	"net/netip"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// handleAreas serves GET /areas: every configured area, its interfaces,
// and their neighbors.
func (s *server) handleAreas(w http.ResponseWriter, r *http.Request) {
	var snap []ospf.AreaSnapshot
	s.router.Call(func() {
		snap = s.router.AreaSnapshots()
	})
	writeJSON(w, s.logger, snap)
}

// neighborEntry flattens an area/interface-scoped neighbor into one row
// for GET /neighbors, the shape an operator scanning adjacency state
// actually wants (no nested area->interface->neighbor tree to walk).
type neighborEntry struct {
	Area      string `json:"area"`
	Interface string `json:"interface"`
	ospf.NeighborSnapshot
}

// handleNeighbors serves GET /neighbors: one flattened row per neighbor
// across every area and interface. Accepts an optional ?area= filter
// (dotted-quad area id).
func (s *server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("area")

	var rows []neighborEntry
	s.router.Call(func() {
		for _, area := range s.router.AreaSnapshots() {
			if filter != "" && area.ID != filter {
				continue
			}
			for _, iface := range area.Interfaces {
				for _, n := range iface.Neighbors {
					rows = append(rows, neighborEntry{
						Area:             area.ID,
						Interface:        iface.Name,
						NeighborSnapshot: n,
					})
				}
			}
		}
	})
	writeJSON(w, s.logger, rows)
}

// handleLSDB serves GET /lsdb?area=<dotted-quad>: every LSA in the given
// area's LSDB. area is required; a missing or malformed area yields 400,
// an area the router does not have yields 404.
func (s *server) handleLSDB(w http.ResponseWriter, r *http.Request) {
	areaID, err := parseAreaID(r.URL.Query().Get("area"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid or missing area: %v", err), http.StatusBadRequest)
		return
	}

	var snap []ospf.LSASnapshot
	s.router.Call(func() {
		snap = s.router.LSDBSnapshots(areaID)
	})
	if snap == nil {
		http.Error(w, "area not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, snap)
}

// handleRoutes serves GET /routes: the most recently computed routing
// table.
func (s *server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	var snap []ospf.RouteSnapshot
	s.router.Call(func() {
		snap = s.router.RouteSnapshots()
	})
	writeJSON(w, s.logger, snap)
}

// parseAreaID parses a dotted-quad area id into its wire uint32 form, the
// same representation ospf.AreaIDString renders back out.
func parseAreaID(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("area query parameter is required")
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	if !addr.Is4() {
		return 0, fmt.Errorf("area %q is not an IPv4 dotted-quad", s)
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}
