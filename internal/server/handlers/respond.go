package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/auth"
	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const actorKey = "actor"

// Authenticate validates the bearer token and stores the caller on the context.
func Authenticate(secret string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header", "code": "unauthorized"})
			return
		}

		claims, err := auth.ValidateToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Debug("rejected bearer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}

		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	actor, _ := c.Get(actorKey)
	a, _ := actor.(models.Actor)
	return a
}

func errorStatus(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusUnprocessableEntity
	case models.KindState:
		return http.StatusConflict
	case models.KindResource:
		if errors.Is(err, models.ErrInsufficientStock) {
			return http.StatusConflict
		}
		return http.StatusNotFound
	case models.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error onto a JSON error response. Internal
// errors are logged and their details withheld.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error", "code": "internal"})
		return
	}

	body := gin.H{"error": err.Error(), "code": models.ErrorCode(err)}
	var short *models.InsufficientStockError
	if errors.As(err, &short) {
		body["available"] = short.Available
		body["requested"] = short.Requested
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
}
