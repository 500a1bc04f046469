package http

import (
	"log/slog"
	"net/http"
	"time"

	"htracker/internal/core"
)

func (s *Server) handleCreateTracker(w http.ResponseWriter, r *http.Request) {
	var req trackerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}

	tracker := core.Tracker{
		UserID:      s.userID(r),
		Name:        req.Name,
		Description: req.Description,
		Type:        core.TrackerType(req.Type),
		Status:      core.TrackerStatus(req.Status),
		Tags:        req.Tags,
		Color:       req.Color,
		Icon:        req.Icon,
	}

	created, err := s.trackers.CreateTracker(r.Context(), tracker)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toTrackerResponse(created))
}

func (s *Server) handleListTrackers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTrackerFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	items, total, err := s.trackers.ListTrackers(r.Context(), s.userID(r), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := trackerListResponse{Items: make([]trackerResponse, 0, len(items)), Total: total}
	for _, t := range items {
		resp.Items = append(resp.Items, toTrackerResponse(t))
	}
	respondData(w, http.StatusOK, resp)
}

func (s *Server) handleGetTracker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	tracker, err := s.trackers.GetTracker(r.Context(), s.userID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toTrackerResponse(tracker))
}

func (s *Server) handleUpdateTracker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	var req trackerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}

	updated, err := s.trackers.UpdateTracker(r.Context(), s.userID(r), id, req.params())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toTrackerResponse(updated))
}

func (s *Server) handleDeleteTracker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	if err := s.trackers.DeleteTracker(r.Context(), s.userID(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleTrackerStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	totals, err := s.trackers.PeriodStats(r.Context(), s.userID(r), id, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, totals)
}

func (s *Server) handleRecomputeStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	st, err := s.trackers.RecomputeStatistics(r.Context(), s.userID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toStatisticsResponse(st))
}

// respondBadBody distinguishes malformed JSON (400) from well-formed bodies
// carrying invalid values (422).
func respondBadBody(w http.ResponseWriter, r *http.Request, err error) {
	if isValidation(err) {
		respondErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.WarnContext(r.Context(), "Malformed request body",
		"method", r.Method, "path", r.URL.Path, "error", err)
	respondErrorMessage(w, http.StatusBadRequest, err.Error())
}
