package http

import (
	"net/http"

	"zerobudget/internal/services"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	views, err := s.recurring.List(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []services.RecurringPaymentView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req services.RecurringInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.recurring.Create(r.Context(), ownerID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	view, err := s.recurring.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req services.RecurringPatch
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.recurring.Update(r.Context(), ownerID(r), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDeleteRecurring unlinks projected items before removing the payment.
func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.recurring.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
