package http

import (
	"time"

	"htracker/internal/core"
)

type statisticsResponse struct {
	TotalEntries int64   `json:"total_entries"`
	TotalTime    int64   `json:"total_time"`
	TotalValue   float64 `json:"total_value"`
	TotalCustom  string  `json:"total_custom,omitempty"`
}

type trackerResponse struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	Tags        []string           `json:"tags,omitempty"`
	Color       string             `json:"color,omitempty"`
	Icon        string             `json:"icon,omitempty"`
	Statistics  statisticsResponse `json:"statistics"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

func toStatisticsResponse(st core.Statistics) statisticsResponse {
	return statisticsResponse{
		TotalEntries: st.TotalEntries,
		TotalTime:    st.TotalTime,
		TotalValue:   st.TotalValue,
		TotalCustom:  st.TotalCustom,
	}
}

func toTrackerResponse(t core.Tracker) trackerResponse {
	return trackerResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Tags:        t.Tags,
		Color:       t.Color,
		Icon:        t.Icon,
		Statistics:  toStatisticsResponse(t.Statistics),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type trackerListResponse struct {
	Items []trackerResponse `json:"items"`
	Total int64             `json:"total"`
}

type entryResponse struct {
	ID        int64    `json:"id"`
	TrackerID int64    `json:"tracker_id"`
	Date      string   `json:"date"`
	StartTime string   `json:"start_time,omitempty"`
	EndTime   string   `json:"end_time,omitempty"`
	Duration  int64    `json:"duration"`
	Value     *float64 `json:"value,omitempty"`
	Note      string   `json:"note,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Version   int64    `json:"version"`
	CreatedAt string   `json:"created_at"`
}

func toEntryResponse(e core.Entry) entryResponse {
	resp := entryResponse{
		ID:        e.ID,
		TrackerID: e.TrackerID,
		Date:      e.Date.UTC().Format(time.RFC3339),
		Duration:  e.Duration,
		Value:     e.Value,
		Note:      e.Note,
		Tags:      e.Tags,
		Version:   e.Version,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.StartTime != nil {
		resp.StartTime = e.StartTime.UTC().Format(time.RFC3339)
	}
	if e.EndTime != nil {
		resp.EndTime = e.EndTime.UTC().Format(time.RFC3339)
	}
	return resp
}

type entryListResponse struct {
	Items []entryResponse `json:"items"`
	Total int64           `json:"total"`
}
