package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/scolaris/scolaris/pkg/errors"
	"github.com/scolaris/scolaris/pkg/response"
)

// Health returns a status payload including a database ping, useful for
// readiness checks.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				response.Error(c, apperrors.New("SERVICE_UNAVAILABLE", "Database unreachable", http.StatusServiceUnavailable).WithInternal(err))
				return
			}
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
