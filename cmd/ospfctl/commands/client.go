package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// apiClient is a thin wrapper over the admin API's read-only JSON GETs,
// the plain-HTTP analog of gobfdctl's generated ConnectRPC client --
// there is no service contract to generate against here, so the client
// just decodes the same snapshot types internal/adminapi serializes.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, httpClient *http.Client) *apiClient {
	return &apiClient{baseURL: baseURL, http: httpClient}
}

func (c *apiClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *apiClient) Areas(ctx context.Context) ([]ospf.AreaSnapshot, error) {
	var areas []ospf.AreaSnapshot
	err := c.getJSON(ctx, "/areas", &areas)
	return areas, err
}

// neighborEntry mirrors internal/adminapi's flattened row shape for
// GET /neighbors.
type neighborEntry struct {
	Area      string `json:"area"`
	Interface string `json:"interface"`
	ospf.NeighborSnapshot
}

func (c *apiClient) Neighbors(ctx context.Context, area string) ([]neighborEntry, error) {
	path := "/neighbors"
	if area != "" {
		path += "?area=" + area
	}
	var rows []neighborEntry
	err := c.getJSON(ctx, path, &rows)
	return rows, err
}

func (c *apiClient) LSDB(ctx context.Context, area string) ([]ospf.LSASnapshot, error) {
	var lsas []ospf.LSASnapshot
	err := c.getJSON(ctx, "/lsdb?area="+area, &lsas)
	return lsas, err
}

func (c *apiClient) Routes(ctx context.Context) ([]ospf.RouteSnapshot, error) {
	var routes []ospf.RouteSnapshot
	err := c.getJSON(ctx, "/routes", &routes)
	return routes, err
}
