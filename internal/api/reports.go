package api

import (
	"net/http"
	"time"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/internal/jobs"
)

// requestDirectoryReport enqueues the report; the bound tenant is captured
// on the task by the enqueuer.
func (h *handlers) requestDirectoryReport(ctx handler.Context, _ struct{}) handler.Response {
	if err := h.enqueuer.Enqueue(ctx, jobs.DirectoryReport{RequestedAt: time.Now().UTC()}); err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(map[string]string{"status": "queued"}, handler.WithJSONStatus(http.StatusAccepted))
}
