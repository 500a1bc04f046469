package http

import (
	"encoding/json"
	"net/url"
	"testing"

	"htracker/internal/core"
)

func TestFlexValueUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
		fails bool
	}{
		{"number", `12.5`, 12.5, false},
		{"negative number", `-3`, -3, false},
		{"string dot", `"12.34"`, 12.34, false},
		{"string comma", `"12,34"`, 12.34, false},
		{"garbage string", `"abc"`, 0, true},
		{"empty string", `""`, 0, true},
		{"bool", `true`, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v flexValue
			err := json.Unmarshal([]byte(tc.input), &v)
			if tc.fails {
				if err == nil {
					t.Fatalf("expected error for %s", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if v.f != tc.want {
				t.Fatalf("got %v, want %v", v.f, tc.want)
			}
		})
	}
}

func TestParseTrackerFilter(t *testing.T) {
	q := url.Values{}
	q.Set("status", "active")
	q.Set("type", "Timer")
	q.Set("search", "run")
	q.Set("sort", "name")
	q.Set("order", "asc")
	q.Set("page", "2")
	q.Set("limit", "5")

	f, err := parseTrackerFilter(q)
	if err != nil {
		t.Fatal(err)
	}
	if f.Status == nil || *f.Status != core.StatusActive {
		t.Fatalf("status = %v", f.Status)
	}
	if f.Type == nil || *f.Type != core.TypeTimer {
		t.Fatalf("type = %v", f.Type)
	}
	if f.Search != "run" || f.Sort != "name" || f.Order != "asc" || f.Page != 2 || f.Limit != 5 {
		t.Fatalf("filter = %+v", f)
	}
}

func TestParseTrackerFilterRejectsUnknown(t *testing.T) {
	q := url.Values{}
	q.Set("type", "WIDGET")
	if _, err := parseTrackerFilter(q); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestEntryUpdateRequestParams(t *testing.T) {
	var req entryUpdateRequest
	if err := json.Unmarshal([]byte(`{"note":"later","value":"7,5","end_time":"2026-08-19T10:00:00Z"}`), &req); err != nil {
		t.Fatal(err)
	}
	p := req.params()
	if p.Note == nil || *p.Note != "later" {
		t.Fatalf("note = %v", p.Note)
	}
	if p.Value == nil || *p.Value != 7.5 {
		t.Fatalf("value = %v", p.Value)
	}
	if p.EndTime == nil || p.EndTime.Hour() != 10 {
		t.Fatalf("end_time = %v", p.EndTime)
	}
	if p.Date != nil || p.StartTime != nil || p.Tags != nil {
		t.Fatalf("unexpected fields set: %+v", p)
	}
}
