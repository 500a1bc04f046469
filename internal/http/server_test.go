package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"htracker/internal/services"
	"htracker/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cache := services.NewTrackerCache(100, time.Minute)
	trackers := services.NewTrackerService(store, cache)
	entries := services.NewEntryService(store, nil, cache)

	s := NewServer(":0", trackers, entries, store, "default")
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(ts.Close)
	return ts
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, body, user string) (int, testEnvelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		// healthz style plain responses have no envelope
		return resp.StatusCode, testEnvelope{}
	}
	return resp.StatusCode, env
}

func createTestTracker(t *testing.T, ts *httptest.Server, user, name, typ string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q}`, name, typ)
	status, env := doJSON(t, ts, "POST", "/api/trackers", body, user)
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("create tracker: status=%d env=%+v", status, env)
	}
	var data struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	return data.ID
}

func TestCreateTracker(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, ts, "POST", "/api/trackers",
		`{"name":"Reading","type":"COUNTER","tags":["books"],"color":"#336699"}`, "alice")
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if !env.Success {
		t.Fatalf("envelope: %+v", env)
	}

	var data struct {
		ID         int64    `json:"id"`
		Name       string   `json:"name"`
		Type       string   `json:"type"`
		Status     string   `json:"status"`
		Tags       []string `json:"tags"`
		Statistics struct {
			TotalEntries int64 `json:"total_entries"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Name != "Reading" || data.Type != "COUNTER" || data.Status != "ACTIVE" {
		t.Fatalf("data = %+v", data)
	}
	if data.Statistics.TotalEntries != 0 {
		t.Fatalf("fresh tracker has entries: %+v", data)
	}
}

func TestCreateTrackerValidationError(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, ts, "POST", "/api/trackers",
		`{"name":"","type":"COUNTER"}`, "alice")
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
	if env.Success || env.Error == "" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestCreateTrackerMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, ts, "POST", "/api/trackers", `{"name":`, "alice")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if env.Success {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestGetTrackerNotFound(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, ts, "GET", "/api/trackers/999", "", "alice")
	if status != http.StatusNotFound || env.Success {
		t.Fatalf("status=%d env=%+v", status, env)
	}
}

func TestTrackerScopedByUser(t *testing.T) {
	ts := newTestServer(t)
	id := createTestTracker(t, ts, "alice", "Private", "OCCURRENCE")

	status, _ := doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d", id), "", "bob")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for other user", status)
	}

	status, _ = doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d", id), "", "alice")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 for owner", status)
	}
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	trackerID := createTestTracker(t, ts, "alice", "Coffee", "AMOUNT")

	// Comma decimal separator is accepted in string values
	body := fmt.Sprintf(`{"tracker_id":%d,"value":"3,50","note":"espresso"}`, trackerID)
	status, env := doJSON(t, ts, "POST", "/api/entries", body, "alice")
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("create entry: status=%d env=%+v", status, env)
	}
	var entry struct {
		ID      int64    `json:"id"`
		Value   *float64 `json:"value"`
		Version int64    `json:"version"`
	}
	if err := json.Unmarshal(env.Data, &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Value == nil || *entry.Value != 3.5 || entry.Version != 1 {
		t.Fatalf("entry = %+v", entry)
	}

	// Statistics visible on the tracker
	status, env = doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d", trackerID), "", "alice")
	if status != http.StatusOK {
		t.Fatalf("get tracker: %d", status)
	}
	var tr struct {
		Statistics struct {
			TotalEntries int64   `json:"total_entries"`
			TotalValue   float64 `json:"total_value"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Statistics.TotalEntries != 1 || tr.Statistics.TotalValue != 3.5 {
		t.Fatalf("stats = %+v", tr.Statistics)
	}

	// Update bumps version
	status, env = doJSON(t, ts, "PUT", fmt.Sprintf("/api/entries/%d", entry.ID),
		`{"value":5}`, "alice")
	if status != http.StatusOK {
		t.Fatalf("update entry: %d", status)
	}
	if err := json.Unmarshal(env.Data, &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Version != 2 || entry.Value == nil || *entry.Value != 5 {
		t.Fatalf("updated entry = %+v", entry)
	}

	// Listing
	status, env = doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d/entries", trackerID), "", "alice")
	if status != http.StatusOK {
		t.Fatalf("list entries: %d", status)
	}
	var list struct {
		Items []json.RawMessage `json:"items"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("list = %+v", list)
	}

	// Delete
	status, _ = doJSON(t, ts, "DELETE", fmt.Sprintf("/api/entries/%d", entry.ID), "", "alice")
	if status != http.StatusOK {
		t.Fatalf("delete entry: %d", status)
	}
	status, _ = doJSON(t, ts, "DELETE", fmt.Sprintf("/api/entries/%d", entry.ID), "", "alice")
	if status != http.StatusNotFound {
		t.Fatalf("double delete: %d, want 404", status)
	}
}

func TestPeriodStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	trackerID := createTestTracker(t, ts, "alice", "Pushups", "COUNTER")

	body := fmt.Sprintf(`{"tracker_id":%d,"value":25}`, trackerID)
	if status, _ := doJSON(t, ts, "POST", "/api/entries", body, "alice"); status != http.StatusCreated {
		t.Fatalf("create entry: %d", status)
	}

	status, env := doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d/stats", trackerID), "", "alice")
	if status != http.StatusOK || !env.Success {
		t.Fatalf("stats: status=%d env=%+v", status, env)
	}
	var totals struct {
		Today float64 `json:"today"`
		Week  float64 `json:"week"`
		Month float64 `json:"month"`
	}
	if err := json.Unmarshal(env.Data, &totals); err != nil {
		t.Fatal(err)
	}
	if totals.Today != 25 || totals.Week != 25 || totals.Month != 25 {
		t.Fatalf("totals = %+v", totals)
	}
}

func TestTrackerTypeImmutableOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	id := createTestTracker(t, ts, "alice", "Focus", "TIMER")

	status, env := doJSON(t, ts, "PUT", fmt.Sprintf("/api/trackers/%d", id),
		`{"type":"COUNTER"}`, "alice")
	if status != http.StatusUnprocessableEntity || env.Success {
		t.Fatalf("status=%d env=%+v", status, env)
	}
}

func TestListTrackersFilters(t *testing.T) {
	ts := newTestServer(t)
	createTestTracker(t, ts, "alice", "Run", "TIMER")
	createTestTracker(t, ts, "alice", "Read", "COUNTER")

	status, env := doJSON(t, ts, "GET", "/api/trackers?type=timer", "", "alice")
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	var list struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Items[0].Name != "Run" {
		t.Fatalf("list = %+v", list)
	}

	status, _ = doJSON(t, ts, "GET", "/api/trackers?status=bogus", "", "alice")
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("bad status filter: %d, want 422", status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
}

func TestDefaultUserFallback(t *testing.T) {
	ts := newTestServer(t)

	// No X-User-ID header: the configured default user owns the tracker.
	id := createTestTracker(t, ts, "", "Implicit", "OCCURRENCE")

	status, _ := doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d", id), "", "default")
	if status != http.StatusOK {
		t.Fatalf("default user cannot read own tracker: %d", status)
	}
}

func TestRecomputeStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	id := createTestTracker(t, ts, "alice", "Push-ups", "COUNTER")

	for _, v := range []int{5, -3, 2} {
		body := fmt.Sprintf(`{"tracker_id":%d,"value":%d}`, id, v)
		status, env := doJSON(t, ts, "POST", "/api/entries", body, "alice")
		if status != http.StatusCreated || !env.Success {
			t.Fatalf("create entry: status=%d env=%+v", status, env)
		}
	}

	status, env := doJSON(t, ts, "POST", fmt.Sprintf("/api/trackers/%d/recompute", id), "", "alice")
	if status != http.StatusOK || !env.Success {
		t.Fatalf("recompute: status=%d env=%+v", status, env)
	}
	var stats struct {
		TotalEntries int64   `json:"total_entries"`
		TotalValue   float64 `json:"total_value"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 3 || stats.TotalValue != 4 {
		t.Fatalf("recomputed stats = %+v; want 3 entries, value 4", stats)
	}

	status, _ = doJSON(t, ts, "POST", fmt.Sprintf("/api/trackers/%d/recompute", id), "", "bob")
	if status != http.StatusNotFound {
		t.Fatalf("stranger recompute: status=%d; want 404", status)
	}
}

func TestUpdateTrackerRejectsInvalidFields(t *testing.T) {
	ts := newTestServer(t)

	id := createTestTracker(t, ts, "alice", "Reading", "COUNTER")

	status, env := doJSON(t, ts, "PUT", fmt.Sprintf("/api/trackers/%d", id),
		`{"color":"not-a-color"}`, "alice")
	if status != http.StatusUnprocessableEntity || env.Success {
		t.Fatalf("bad color: status=%d env=%+v; want 422", status, env)
	}

	status, env = doJSON(t, ts, "PUT", fmt.Sprintf("/api/trackers/%d", id),
		`{"status":"NONSENSE"}`, "alice")
	if status != http.StatusUnprocessableEntity || env.Success {
		t.Fatalf("bad status: status=%d env=%+v; want 422", status, env)
	}

	// The tracker is unchanged after the rejected updates.
	status, env = doJSON(t, ts, "GET", fmt.Sprintf("/api/trackers/%d", id), "", "alice")
	if status != http.StatusOK {
		t.Fatalf("get after rejected update: %d", status)
	}
	var tr struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Color  string `json:"color"`
	}
	if err := json.Unmarshal(env.Data, &tr); err != nil {
		t.Fatal(err)
	}
	if tr.Name != "Reading" || tr.Status != "ACTIVE" || tr.Color != "" {
		t.Fatalf("rejected update mutated tracker: %+v", tr)
	}
}
