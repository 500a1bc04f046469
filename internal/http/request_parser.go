// Package http provides the JSON API server.
//
// This file implements parsing and validation of request data: caller
// identity, listing filters, and the JSON bodies of the mutation endpoints.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"htracker/internal/core"
	"htracker/internal/storage"
)

// userID resolves the caller from the X-User-ID header, falling back to the
// configured default user.
func (s *Server) userID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return s.defaultUser
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseTrackerFilter extracts listing filters from query parameters. Unknown
// values for status and type are rejected.
func parseTrackerFilter(query url.Values) (storage.TrackerFilter, error) {
	var f storage.TrackerFilter

	if v := strings.TrimSpace(query.Get("status")); v != "" {
		st := core.TrackerStatus(strings.ToUpper(v))
		if !st.Valid() {
			return f, core.ErrInvalidStatus
		}
		f.Status = &st
	}
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ := core.TrackerType(strings.ToUpper(v))
		if !typ.Valid() {
			return f, core.ErrInvalidType
		}
		f.Type = &typ
	}
	f.Search = strings.TrimSpace(query.Get("search"))
	f.Sort = strings.TrimSpace(query.Get("sort"))
	f.Order = strings.TrimSpace(query.Get("order"))
	f.Page, f.Limit = parsePagination(query)
	return f, nil
}

func parsePagination(query url.Values) (page, limit int) {
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return page, limit
}

// flexValue accepts a numeric value either as a JSON number or as a string,
// including the comma decimal separator.
type flexValue struct {
	f float64
}

func (v *flexValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return core.ErrInvalidValue
		}
		f, err := core.ParseValue(raw)
		if err != nil {
			return err
		}
		v.f = f
		return nil
	}
	f, err := core.ParseValue(s)
	if err != nil {
		return err
	}
	v.f = f
	return nil
}

// flexTime parses RFC3339 timestamps from JSON strings.
type flexTime struct {
	t time.Time
}

func (v *flexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid time %s", data)
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid time %q (want RFC3339)", raw)
	}
	v.t = t
	return nil
}

type trackerCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
	Color       string   `json:"color"`
	Icon        string   `json:"icon"`
}

type trackerUpdateRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Type        *string   `json:"type"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	Color       *string   `json:"color"`
	Icon        *string   `json:"icon"`
	TotalCustom *string   `json:"total_custom"`
}

func (req trackerUpdateRequest) params() storage.UpdateTrackerParams {
	p := storage.UpdateTrackerParams{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Color:       req.Color,
		Icon:        req.Icon,
		TotalCustom: req.TotalCustom,
	}
	if req.Type != nil {
		typ := core.TrackerType(strings.ToUpper(*req.Type))
		p.Type = &typ
	}
	if req.Status != nil {
		st := core.TrackerStatus(strings.ToUpper(*req.Status))
		p.Status = &st
	}
	return p
}

type entryCreateRequest struct {
	TrackerID int64      `json:"tracker_id"`
	Date      *flexTime  `json:"date"`
	StartTime *flexTime  `json:"start_time"`
	EndTime   *flexTime  `json:"end_time"`
	Value     *flexValue `json:"value"`
	Note      string     `json:"note"`
	Tags      []string   `json:"tags"`
}

func (req entryCreateRequest) entry() core.Entry {
	e := core.Entry{
		TrackerID: req.TrackerID,
		Note:      req.Note,
		Tags:      req.Tags,
	}
	if req.Date != nil {
		e.Date = req.Date.t
	}
	if req.StartTime != nil {
		e.StartTime = &req.StartTime.t
	}
	if req.EndTime != nil {
		e.EndTime = &req.EndTime.t
	}
	if req.Value != nil {
		e.Value = &req.Value.f
	}
	return e
}

type entryUpdateRequest struct {
	Date      *flexTime  `json:"date"`
	StartTime *flexTime  `json:"start_time"`
	EndTime   *flexTime  `json:"end_time"`
	Value     *flexValue `json:"value"`
	Note      *string    `json:"note"`
	Tags      *[]string  `json:"tags"`
}

func (req entryUpdateRequest) params() storage.UpdateEntryParams {
	p := storage.UpdateEntryParams{
		Note: req.Note,
		Tags: req.Tags,
	}
	if req.Date != nil {
		p.Date = &req.Date.t
	}
	if req.StartTime != nil {
		p.StartTime = &req.StartTime.t
	}
	if req.EndTime != nil {
		p.EndTime = &req.EndTime.t
	}
	if req.Value != nil {
		p.Value = &req.Value.f
	}
	return p
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
