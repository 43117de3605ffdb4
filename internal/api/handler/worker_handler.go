package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/resque-go/internal/api/dto"
	"github.com/cuongbtq/resque-go/internal/stat"
)

// ListWorkers handles GET /api/v1/workers
func (h *Handler) ListWorkers(c *gin.Context) {
	ctx := c.Request.Context()

	ids, err := h.workers.Workers(ctx)
	if err != nil {
		h.logger.Error("Failed to list workers", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list workers",
		})
		return
	}

	workers := make([]dto.WorkerDTO, 0, len(ids))
	for _, id := range ids {
		w, err := h.describeWorker(ctx, id)
		if err != nil {
			h.logger.Error("Failed to describe worker",
				slog.String("worker", id),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list workers",
			})
			return
		}
		workers = append(workers, w)
	}

	c.JSON(http.StatusOK, dto.ListWorkersResponse{Workers: workers})
}

func (h *Handler) describeWorker(ctx context.Context, id string) (dto.WorkerDTO, error) {
	w := dto.WorkerDTO{ID: id}

	started, _, err := h.workers.Started(ctx, id)
	if err != nil {
		return w, err
	}
	w.Started = started

	if w.Processed, err = h.stats.Get(ctx, stat.WorkerName(stat.Processed, id)); err != nil {
		return w, err
	}
	if w.Failed, err = h.stats.Get(ctx, stat.WorkerName(stat.Failed, id)); err != nil {
		return w, err
	}

	marker, ok, err := h.workers.Processing(ctx, id)
	if err != nil {
		return w, err
	}
	if ok {
		w.Processing = &dto.ProcessingDTO{
			Queue:   marker.Queue,
			RunAt:   marker.RunAt,
			Payload: marker.Payload,
		}
	}
	return w, nil
}

// GetStats handles GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	var resp dto.StatsResponse

	fail := func(what string, err error) {
		h.logger.Error("Failed to collect stats",
			slog.String("stage", what),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to collect stats",
		})
	}

	var err error
	if resp.Processed, err = h.stats.Get(ctx, stat.Processed); err != nil {
		fail("processed", err)
		return
	}
	if resp.Failed, err = h.stats.Get(ctx, stat.Failed); err != nil {
		fail("failed", err)
		return
	}

	queues, err := h.queues.Queues(ctx)
	if err != nil {
		fail("queues", err)
		return
	}
	resp.Queues = len(queues)
	for _, q := range queues {
		size, err := h.queues.Size(ctx, q)
		if err != nil {
			fail("queues", err)
			return
		}
		resp.Pending += size
	}

	workers, err := h.workers.Workers(ctx)
	if err != nil {
		fail("workers", err)
		return
	}
	resp.Workers = len(workers)

	if resp.Failures, err = h.failures.Count(ctx); err != nil {
		fail("failures", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
