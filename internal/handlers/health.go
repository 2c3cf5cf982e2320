package handlers

import (
	"github.com/acme/supportlens/internal/models"
	"github.com/gin-gonic/gin"
)

// Health reports service and database status.
func Health(c *gin.Context) {
	dbStatus := "ok"
	if db := models.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unavailable"
		}
	} else {
		dbStatus = "uninitialized"
	}

	c.JSON(200, gin.H{
		"status":   "ok",
		"service":  "supportlens",
		"database": dbStatus,
	})
}
