package http

import (
	"net/http"
)

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}

	created, err := s.entries.CreateEntry(r.Context(), s.userID(r), req.entry())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, toEntryResponse(created))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "entry not found")
		return
	}

	var req entryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}

	updated, err := s.entries.UpdateEntry(r.Context(), s.userID(r), id, req.params())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toEntryResponse(updated))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "entry not found")
		return
	}

	if err := s.entries.DeleteEntry(r.Context(), s.userID(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	trackerID, err := pathID(r)
	if err != nil {
		respondErrorMessage(w, http.StatusNotFound, "tracker not found")
		return
	}

	page, limit := parsePagination(r.URL.Query())
	items, total, err := s.entries.ListEntriesByTracker(r.Context(), s.userID(r), trackerID, page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := entryListResponse{Items: make([]entryResponse, 0, len(items)), Total: total}
	for _, e := range items {
		resp.Items = append(resp.Items, toEntryResponse(e))
	}
	respondData(w, http.StatusOK, resp)
}
