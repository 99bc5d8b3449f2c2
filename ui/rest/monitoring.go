package rest

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/az-mediahub/pkg/ingestworker"
	"github.com/AzielCF/az-mediahub/pkg/utils"
)

type Monitoring struct {
	Pool *ingestworker.Pool
}

func InitRestMonitoring(app fiber.Router, pool *ingestworker.Pool) Monitoring {
	handler := Monitoring{Pool: pool}

	group := app.Group("/monitoring")
	group.Get("/worker-pool", handler.GetWorkerPoolStats)

	return handler
}

func (h *Monitoring) GetWorkerPoolStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(503).JSON(utils.ResponseData{
			Status:  503,
			Code:    "POOL_DISABLED",
			Message: "Ingestion worker pool is not running",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Worker pool statistics",
		Results: h.Pool.Stats(),
	})
}

func contextWithTimeout(c *fiber.Ctx, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), d)
}
