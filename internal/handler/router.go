package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tinbox/internal/config"
)

// SetupRouter wires middleware and the /api/v1 routes.
func SetupRouter(h *Handler, cfg *config.ServerConfig, log logrus.FieldLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.AllowOrigins))

	api := r.Group("/api/v1")
	{
		donations := api.Group("/donations")
		{
			donations.GET("", h.ListDonations)
			donations.POST("", h.CreateDonation)
			donations.GET("/export", h.ExportDonations)
			donations.POST("/delete/confirm", h.ConfirmDelete)
			donations.POST("/delete/cancel", h.CancelDelete)
			donations.GET("/:id", h.GetDonation)
			donations.PUT("/:id", h.UpdateDonation)
			donations.POST("/:id/delete", h.RequestDelete)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
