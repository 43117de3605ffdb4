package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/resque-go/internal/api/dto"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFailures handles GET /api/v1/failures
// Lists recorded failures oldest first with cursor pagination
func (h *Handler) ListFailures(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ListFailuresRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeFailureCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	var offset int64
	if cursor != nil {
		offset = cursor.Offset
	}

	total, err := h.failures.Count(ctx)
	if err != nil {
		h.logger.Error("Failed to count failures", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list failures",
		})
		return
	}

	failures, err := h.failures.All(ctx, offset, req.PageSize)
	if err != nil {
		h.logger.Error("Failed to list failures", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list failures",
		})
		return
	}

	out := make([]dto.FailureDTO, len(failures))
	for i, f := range failures {
		out[i] = dto.FailureDTO{
			FailedAt:  f.FailedAt,
			Payload:   f.Payload,
			Exception: f.Exception,
			Error:     f.Error,
			Backtrace: f.Backtrace,
			Worker:    f.Worker,
			Queue:     f.Queue,
		}
	}

	var nextCursor string
	if next := offset + int64(len(failures)); len(failures) > 0 && next < total {
		nextCursor = EncodeFailureCursor(&FailureCursor{Offset: next})
	}

	c.JSON(http.StatusOK, dto.ListFailuresResponse{
		Failures:   out,
		Total:      total,
		NextCursor: nextCursor,
	})
}

// ClearFailures handles DELETE /api/v1/failures
func (h *Handler) ClearFailures(c *gin.Context) {
	if err := h.failures.Clear(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear failures", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to clear failures",
		})
		return
	}

	h.logger.Info("Failures cleared")
	c.Status(http.StatusNoContent)
}
