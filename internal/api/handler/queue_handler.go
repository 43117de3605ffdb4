package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/resque-go/internal/api/dto"
	"github.com/cuongbtq/resque-go/internal/job"
)

const (
	defaultPeekCount = 20
	maxPeekCount     = 100
)

// Enqueue handles POST /api/v1/queues/:queue/jobs
func (h *Handler) Enqueue(c *gin.Context) {
	queueName := c.Param("queue")

	var req dto.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	p, err := h.queues.Enqueue(c.Request.Context(), queueName, req.Class, req.Args, req.Monitor)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNoClass), errors.Is(err, job.ErrNoQueue):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		case p == nil:
			h.logger.Error("Failed to enqueue job",
				slog.String("queue", queueName),
				slog.String("class", req.Class),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to enqueue job",
			})
			return
		default:
			// pushed, but an after-enqueue observer failed
			h.logger.Warn("After enqueue hook failed",
				slog.String("queue", queueName),
				slog.String("class", req.Class),
				slog.String("error", err.Error()),
			)
		}
	}

	c.JSON(http.StatusCreated, dto.EnqueueResponse{
		Queue: queueName,
		Class: p.Class,
		Args:  p.Args,
		JobID: p.ID,
	})
}

// ListQueues handles GET /api/v1/queues
func (h *Handler) ListQueues(c *gin.Context) {
	ctx := c.Request.Context()

	names, err := h.queues.Queues(ctx)
	if err != nil {
		h.logger.Error("Failed to list queues", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list queues",
		})
		return
	}

	queues := make([]dto.QueueDTO, 0, len(names))
	for _, name := range names {
		size, err := h.queues.Size(ctx, name)
		if err != nil {
			h.logger.Error("Failed to get queue size",
				slog.String("queue", name),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list queues",
			})
			return
		}
		queues = append(queues, dto.QueueDTO{Name: name, Size: size})
	}

	c.JSON(http.StatusOK, dto.ListQueuesResponse{Queues: queues})
}

// GetQueue handles GET /api/v1/queues/:queue
// Returns the queue size and a page of pending payloads
func (h *Handler) GetQueue(c *gin.Context) {
	ctx := c.Request.Context()
	queueName := c.Param("queue")

	var req dto.PeekQueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Start < 0 {
		req.Start = 0
	}
	if req.Count <= 0 {
		req.Count = defaultPeekCount
	}
	if req.Count > maxPeekCount {
		req.Count = maxPeekCount
	}

	size, err := h.queues.Size(ctx, queueName)
	if err != nil {
		h.logger.Error("Failed to get queue size",
			slog.String("queue", queueName),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get queue",
		})
		return
	}

	jobs, err := h.queues.Peek(ctx, queueName, req.Start, req.Count)
	if err != nil {
		h.logger.Error("Failed to peek queue",
			slog.String("queue", queueName),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get queue",
		})
		return
	}

	payloads := make([]json.RawMessage, len(jobs))
	for i, j := range jobs {
		payloads[i] = j.RawJSON()
	}

	c.JSON(http.StatusOK, dto.QueueDetailResponse{
		Name: queueName,
		Size: size,
		Jobs: payloads,
	})
}

// RemoveQueue handles DELETE /api/v1/queues/:queue
func (h *Handler) RemoveQueue(c *gin.Context) {
	queueName := c.Param("queue")

	if err := h.queues.RemoveQueue(c.Request.Context(), queueName); err != nil {
		h.logger.Error("Failed to remove queue",
			slog.String("queue", queueName),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to remove queue",
		})
		return
	}

	h.logger.Info("Queue removed", slog.String("queue", queueName))
	c.Status(http.StatusNoContent)
}
