package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"iprange/internal/discovery"
	"iprange/internal/domain"
	"iprange/internal/observability"
	"iprange/internal/storage"
)

func newTestServer(t *testing.T, sync *discovery.SyncService) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	mux := http.NewServeMux()
	logger := observability.NewLogger(observability.Config{Level: "error", Format: "json"})
	srv := NewServer(mux, store, logger, nil, sync)
	srv.RegisterRoutes(nil)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = store.Close() })
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

var wantAsymmetricV4 = []string{
	"192.0.2.1/32",
	"192.0.2.2/31",
	"192.0.2.4/30",
	"192.0.2.8/29",
	"192.0.2.16/28",
	"192.0.2.32/27",
	"192.0.2.64/27",
	"192.0.2.96/30",
	"192.0.2.100/32",
}

func TestConvertEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/convert", convertRequest{Range: "192.0.2.1-192.0.2.100"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got convertResponse
	decodeJSON(t, resp, &got)
	if got.Family != "ipv4" {
		t.Errorf("family = %q", got.Family)
	}
	if got.Range != "192.0.2.1-192.0.2.100" {
		t.Errorf("range = %q", got.Range)
	}
	if !reflect.DeepEqual(got.Subnets, wantAsymmetricV4) {
		t.Errorf("subnets = %v\nwant %v", got.Subnets, wantAsymmetricV4)
	}
	if got.SubnetCount != 9 || got.ID != "" {
		t.Errorf("count=%d id=%q", got.SubnetCount, got.ID)
	}
}

func TestConvertSingleAddressAndIPv6(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/convert", convertRequest{Range: "192.0.2.7"})
	var got convertResponse
	decodeJSON(t, resp, &got)
	if len(got.Subnets) != 1 || got.Subnets[0] != "192.0.2.7/32" {
		t.Errorf("single address subnets = %v", got.Subnets)
	}
	if got.Range != "192.0.2.7-192.0.2.7" {
		t.Errorf("range = %q", got.Range)
	}

	resp = postJSON(t, ts.URL+"/api/v1/convert", convertRequest{
		Family: "ipv6",
		Range:  "2001:0db8:0000:0000:0000:0000:0000:0001-2001:0db8:0000:0000:0000:0000:0000:0064",
	})
	decodeJSON(t, resp, &got)
	if got.SubnetCount != 9 {
		t.Errorf("ipv6 count = %d, want 9", got.SubnetCount)
	}
	if got.Subnets[0] != "2001:0db8:0000:0000:0000:0000:0000:0001/128" {
		t.Errorf("ipv6 first subnet = %q", got.Subnets[0])
	}
	if got.Subnets[8] != "2001:0db8:0000:0000:0000:0000:0000:0064/128" {
		t.Errorf("ipv6 last subnet = %q", got.Subnets[8])
	}
}

func TestConvertValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	cases := []struct {
		name string
		body convertRequest
	}{
		{"missing range", convertRequest{}},
		{"unknown family", convertRequest{Range: "192.0.2.1", Family: "ipv5"}},
		{"bad address", convertRequest{Range: "192.0.2.256"}},
		{"four digit octet", convertRequest{Range: "192.0.2.0001"}},
		{"reversed range", convertRequest{Range: "192.0.2.100-192.0.2.1"}},
		{"compressed ipv6", convertRequest{Range: "2001:db8::1", Family: "ipv6"}},
		{"extra hyphen", convertRequest{Range: "192.0.2.1-192.0.2.50-192.0.2.100"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/v1/convert", tc.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestConvertPersistAndLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/convert", convertRequest{
		Range:   "10.0.0.0-10.0.0.255",
		Name:    "lab",
		Persist: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("persist status = %d", resp.StatusCode)
	}
	var created convertResponse
	decodeJSON(t, resp, &created)
	if created.ID == "" || created.CreatedAt == nil {
		t.Fatalf("persisted response missing id/created_at: %+v", created)
	}

	// Fetch it back.
	resp, err := http.Get(ts.URL + "/api/v1/conversions/" + created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var conv domain.Conversion
	decodeJSON(t, resp, &conv)
	if conv.Name != "lab" || conv.Source != domain.SourceManual {
		t.Fatalf("stored conversion = %+v", conv)
	}
	if len(conv.Subnets) != 1 || conv.Subnets[0] != "10.0.0.0/24" {
		t.Fatalf("subnets = %v", conv.Subnets)
	}

	// List it.
	resp, err = http.Get(ts.URL + "/api/v1/conversions?family=ipv4")
	if err != nil {
		t.Fatal(err)
	}
	var list listConversionsResponse
	decodeJSON(t, resp, &list)
	if list.Count != 1 {
		t.Fatalf("list count = %d", list.Count)
	}

	// Delete it.
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/conversions/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
}

func TestGetConversionBadID(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/v1/conversions/not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExportCSV(t *testing.T) {
	ts, store := newTestServer(t, nil)
	_, err := store.CreateConversion(context.Background(), domain.CreateConversion{
		Family:    domain.FamilyIPv4,
		Name:      "office",
		RangeText: "192.0.2.1-192.0.2.2",
		StartAddr: "192.0.2.1",
		EndAddr:   "192.0.2.2",
		Subnets:   []string{"192.0.2.1/32", "192.0.2.2/32"},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/v1/export")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// Header plus one row per subnet.
	if len(records) != 3 {
		t.Fatalf("rows = %d, want 3", len(records))
	}
	if records[0][0] != "id" || records[0][6] != "subnet" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][6] != "192.0.2.1/32" || records[2][6] != "192.0.2.2/32" {
		t.Errorf("subnet cells = %q, %q", records[1][6], records[2][6])
	}
}

type staticCollector struct {
	ranges []domain.DiscoveredRange
}

func (s *staticCollector) Provider() string { return "aws" }

func (s *staticCollector) Discover(context.Context) ([]domain.DiscoveredRange, error) {
	return s.ranges, nil
}

func TestDiscoverySyncEndpoint(t *testing.T) {
	store := storage.NewMemoryStore()
	sync := discovery.NewSyncService(store, nil, nil)
	sync.RegisterCollector(&staticCollector{ranges: []domain.DiscoveredRange{{
		Provider:  "aws",
		SourceID:  "vpc-0abc1234",
		Family:    domain.FamilyIPv4,
		StartAddr: "10.0.0.0",
		EndAddr:   "10.0.255.255",
	}}})

	mux := http.NewServeMux()
	logger := observability.NewLogger(observability.Config{Level: "error", Format: "json"})
	srv := NewServer(mux, store, logger, nil, sync)
	srv.RegisterRoutes(nil)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/v1/discovery/sync", syncRequest{Provider: "aws"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result domain.SyncResult
	decodeJSON(t, resp, &result)
	if result.Stored != 1 || result.Discovered != 1 {
		t.Fatalf("result = %+v", result)
	}

	// Unknown provider has no partial result and maps to 400.
	resp = postJSON(t, ts.URL+"/api/v1/discovery/sync", syncRequest{Provider: "gcp"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown provider status = %d", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/v1/discovery/providers")
	if err != nil {
		t.Fatal(err)
	}
	var providers struct {
		Providers []string `json:"providers"`
	}
	decodeJSON(t, resp, &providers)
	if len(providers.Providers) != 1 || providers.Providers[0] != "aws" {
		t.Fatalf("providers = %v", providers.Providers)
	}
}

func TestDiscoverySyncUnconfigured(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/api/v1/discovery/sync", syncRequest{Provider: "aws"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestSystemEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]any
	decodeJSON(t, resp, &health)
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	var ready ReadinessResponse
	decodeJSON(t, resp, &ready)
	if ready.Status != "ok" || ready.Checks["database"] != "ok" {
		t.Errorf("ready = %+v", ready)
	}

	resp, err = http.Get(ts.URL + "/api/v1/version")
	if err != nil {
		t.Fatal(err)
	}
	var version map[string]string
	decodeJSON(t, resp, &version)
	if version["version"] == "" {
		t.Error("empty version")
	}
}

func TestConvertRejectsFullSpaceCollapse(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	// The full address space must come back as two halves, never a /0.
	resp := postJSON(t, ts.URL+"/api/v1/convert", convertRequest{Range: "0.0.0.0-255.255.255.255"})
	var got convertResponse
	decodeJSON(t, resp, &got)
	want := []string{"0.0.0.0/1", "128.0.0.0/1"}
	if !reflect.DeepEqual(got.Subnets, want) {
		t.Errorf("subnets = %v, want %v", got.Subnets, want)
	}
	for _, s := range got.Subnets {
		if strings.HasSuffix(s, "/0") {
			t.Errorf("unexpected /0 block: %s", s)
		}
	}
}
