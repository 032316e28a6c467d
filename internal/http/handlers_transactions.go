package http

import (
	"net/http"
	"time"

	"zerobudget/internal/amqp"
	"zerobudget/internal/core"
	applog "zerobudget/internal/log"
	"zerobudget/internal/services"
)

type syncRequest struct {
	AccountID string     `json:"accountId"`
	StartDate *core.Date `json:"startDate"`
	EndDate   *core.Date `json:"endDate"`
	Async     bool       `json:"async"`
}

type syncQueuedResponse struct {
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
}

type assignRequest struct {
	BudgetItemID *string `json:"budgetItemId"`
}

type splitsResponse struct {
	TransactionID string       `json:"transactionId"`
	Splits        []core.Split `json:"splits"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.budget.CreateTransaction(r.Context(), ownerID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleSyncTransactions imports provider transactions inline, or queues the
// request for the sync worker when async is set.
func (s *Server) handleSyncTransactions(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(req.EndDate.Time) {
		writeError(w, r, core.NewValidationError("startDate", "must not be after endDate"))
		return
	}
	owner := ownerID(r)

	if req.Async {
		if s.queue == nil {
			writeError(w, r, core.NewValidationError("async", "asynchronous sync is not available"))
			return
		}
		msg := amqp.NewSyncRequestMessage(owner, req.AccountID, req.StartDate, req.EndDate)
		if err := s.queue.PublishSyncRequest(r.Context(), msg); err != nil {
			s.oplog.LogError(r.Context(), "Failed to queue sync request", err, applog.OpSync,
				applog.NewFields().WithOwner(owner))
			writeErrorCode(w, r, http.StatusServiceUnavailable, CodeUnavailable, "sync queue unavailable")
			return
		}
		writeJSON(w, http.StatusAccepted, syncQueuedResponse{
			Status:      "queued",
			RequestedAt: msg.RequestedAt,
		})
		return
	}

	if s.syncer == nil {
		writeErrorCode(w, r, http.StatusNotImplemented, CodeNotImplemented, "bank sync is not configured")
		return
	}
	result, err := s.syncer.Sync(r.Context(), owner, services.SyncRequest{
		AccountID: req.AccountID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListUncategorized accepts an optional ?year=&month= to resolve suggestions to items.
func (s *Server) handleListUncategorized(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.budget.ListUncategorized(r.Context(), ownerID(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []services.UncategorizedTransaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleAssignTransaction(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.budget.AssignTransaction(r.Context(), ownerID(r), r.PathValue("id"), req.BudgetItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSetSplits(w http.ResponseWriter, r *http.Request) {
	var req []services.SplitInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	splits, err := s.budget.SetSplits(r.Context(), ownerID(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if splits == nil {
		splits = []core.Split{}
	}
	writeJSON(w, http.StatusOK, splitsResponse{TransactionID: id, Splits: splits})
}

// handleDeleteTransaction soft-deletes; the row survives so a re-sync skips it.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteTransaction(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.budget.RestoreTransaction(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
