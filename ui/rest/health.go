package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/AzielCF/az-mediahub/core/config"
	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
	"github.com/AzielCF/az-mediahub/pkg/utils"
)

type Health struct {
	Store domainStorage.ObjectStore
	DB    *gorm.DB
}

func InitRestHealth(app fiber.Router, store domainStorage.ObjectStore, db *gorm.DB) Health {
	handler := Health{Store: store, DB: db}

	group := app.Group("/health")
	group.Get("/", handler.GetStatus)
	group.Get("/storage", handler.CheckStorage)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.DB != nil {
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			dbStatus = "unreachable"
		}
	} else {
		dbStatus = "disabled"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Service is healthy",
		Results: fiber.Map{
			"version":  config.Global.App.Version,
			"database": dbStatus,
		},
	})
}

// CheckStorage probes the object store with a key that never exists. A
// not-found answer still proves the store is reachable and authenticating.
func (h *Health) CheckStorage(c *fiber.Ctx) error {
	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()

	_, err := h.Store.Head(ctx, "incoming/health/probe")
	if err != nil && !domainStorage.IsNotFound(err) {
		return c.Status(503).JSON(utils.ResponseData{
			Status:  503,
			Code:    "STORAGE_UNAVAILABLE",
			Message: err.Error(),
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Object store is reachable",
	})
}
