package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/bugrelay/internal/api/response"
	"github.com/kiranshivaraju/bugrelay/internal/notice"
	"github.com/kiranshivaraju/bugrelay/internal/reconcile"
)

// maxNoticeBytes bounds the accepted payload size. Backtraces and environment
// dumps are large but nowhere near this.
const maxNoticeBytes = 1 << 20

// Reconciler defines the interface the handler depends on.
type Reconciler interface {
	Process(ctx context.Context, r *notice.Report) (*reconcile.Result, error)
}

// NewNoticesHandler returns an http.HandlerFunc for POST /notices. Responses
// are plain text for compatibility with the notifier clients.
func NewNoticesHandler(svc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNoticeBytes))
		if err != nil {
			slog.Warn("notice rejected", "reason", "unreadable body", "error", err)
			response.Text(w, http.StatusBadRequest, "Could not read the error report.")
			return
		}

		report, err := notice.Parse(body)
		if err != nil {
			slog.Warn("notice rejected", "reason", "malformed payload", "error", err)
			response.Text(w, http.StatusBadRequest, "Could not parse the error report.")
			return
		}

		result, err := svc.Process(r.Context(), report)
		if err != nil {
			writeProcessError(w, report, err)
			return
		}

		response.Text(w, http.StatusOK,
			fmt.Sprintf("Received bug report. Created/updated issue %d.", result.Issue.ID))
	}
}

func writeProcessError(w http.ResponseWriter, report *notice.Report, err error) {
	switch {
	case errors.Is(err, reconcile.ErrUnauthorized):
		slog.Warn("notice rejected", "reason", "unauthorized", "project", report.ProjectKey)
		response.Text(w, http.StatusForbidden, "You provided a wrong or no API key.")
	case errors.Is(err, reconcile.ErrUnknownProject), errors.Is(err, reconcile.ErrUnknownTracker):
		slog.Warn("notice rejected", "reason", "unresolved target",
			"project", report.ProjectKey, "tracker", report.TrackerName, "error", err)
		response.Text(w, http.StatusNotFound, "Could not resolve the target project or tracker.")
	default:
		slog.Error("notice processing failed",
			"project", report.ProjectKey, "error_class", report.ErrorClass, "error", err)
		response.Text(w, http.StatusInternalServerError, "Failed to store the error report.")
	}
}
