package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/resque-go/internal/api/dto"
	"github.com/cuongbtq/resque-go/internal/status"
)

// parseJobID accepts the 32 character hex ids handed out for monitored
// jobs as well as the dashed uuid form.
func (h *Handler) parseJobID(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

// GetJobStatus handles GET /api/v1/jobs/:job_id/status
func (h *Handler) GetJobStatus(c *gin.Context) {
	jobID, ok := h.parseJobID(c)
	if !ok {
		return
	}

	rec, ok := status.New(h.store, jobID).Record(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job is not tracked",
		})
		return
	}

	c.JSON(http.StatusOK, dto.JobStatusResponse{
		JobID:   jobID,
		Status:  rec.Status.String(),
		Code:    int(rec.Status),
		Started: rec.Started,
		Updated: rec.Updated,
	})
}

// StopTracking handles DELETE /api/v1/jobs/:job_id/status
func (h *Handler) StopTracking(c *gin.Context) {
	jobID, ok := h.parseJobID(c)
	if !ok {
		return
	}

	if err := status.New(h.store, jobID).Stop(c.Request.Context()); err != nil {
		h.logger.Error("Failed to stop tracking job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to stop tracking job",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
