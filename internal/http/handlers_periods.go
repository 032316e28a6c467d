package http

import (
	"net/http"

	"zerobudget/internal/core"
	applog "zerobudget/internal/log"
	"zerobudget/internal/services"
)

type bufferRequest struct {
	Buffer string `json:"buffer"`
}

type resetRequest struct {
	Mode string `json:"mode"`
}

type copyRequest struct {
	SourceYear  int `json:"sourceYear"`
	SourceMonth int `json:"sourceMonth"`
	TargetYear  int `json:"targetYear"`
	TargetMonth int `json:"targetMonth"`
}

type exportResponse struct {
	Ref string `json:"ref"`
}

// handleGetPeriod returns the month's summary, creating the period on first access.
func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.budget.PeriodSummary(r.Context(), ownerID(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUpdateBuffer(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bufferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.budget.UpdateBuffer(r.Context(), ownerID(r), year, month, req.Buffer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.oplog.LogPeriodOperation(r.Context(), applog.OpUpdate, ownerID(r), year, month, "buffer", summary.Buffer.StringFixed(core.MoneyScale))
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleResetPeriod(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.rollover.ResetPeriod(r.Context(), ownerID(r), year, month, services.ResetMode(req.Mode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.oplog.LogPeriodOperation(r.Context(), applog.OpReset, ownerID(r), year, month, "mode", req.Mode)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCopyPeriod(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.rollover.CopyPeriod(r.Context(), ownerID(r), req.SourceYear, req.SourceMonth, req.TargetYear, req.TargetMonth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.oplog.LogPeriodOperation(r.Context(), applog.OpCopy, ownerID(r), req.TargetYear, req.TargetMonth,
		"items_copied", result.ItemsCopied,
		"items_skipped", result.ItemsSkipped,
	)

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// handleExportPeriod writes the month's summary to the configured spreadsheet.
func (s *Server) handleExportPeriod(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeErrorCode(w, r, http.StatusNotImplemented, CodeNotImplemented, "spreadsheet export is not configured")
		return
	}
	year, month, err := periodFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.budget.PeriodSummary(r.Context(), ownerID(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.exporter.ExportPeriod(r.Context(), ownerID(r), summary)
	if err != nil {
		s.oplog.LogError(r.Context(), "Spreadsheet export failed", err, applog.OpExport,
			applog.NewFields().WithOwner(ownerID(r)).WithPeriod(year, month))
		writeErrorCode(w, r, http.StatusBadGateway, CodeUnavailable, "spreadsheet export failed")
		return
	}
	s.oplog.LogPeriodOperation(r.Context(), applog.OpExport, ownerID(r), year, month, "ref", ref)
	writeJSON(w, http.StatusOK, exportResponse{Ref: ref})
}
