package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/metrics"
	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// SourcePrincipal is the authenticated caller of the management API
type SourcePrincipal struct {
	ID       uint            `json:"id"`
	Platform domain.Platform `json:"platform"`
	Active   bool            `json:"active"`
}

func principalOf(src *domain.Source) SourcePrincipal {
	return SourcePrincipal{ID: src.ID, Platform: src.Name, Active: src.IsActive}
}

// PrincipalFrom returns the principal stored by the api key middleware
func PrincipalFrom(c *gin.Context) (SourcePrincipal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return SourcePrincipal{}, false
	}
	p, ok := v.(SourcePrincipal)
	return p, ok
}

// apiKeyAuth admits requests whose X-API-Key belongs to an active source
func (h *Handler) apiKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorEnvelope("API key requerida"))
			return
		}

		src, err := h.sources.FindByAPIKey(c.Request.Context(), key)
		if errors.Is(err, domain.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorEnvelope("API key inválida"))
			return
		} else if err != nil {
			h.logger.Error("failed to authenticate api key", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorEnvelope("Error de autenticación"))
			return
		}

		c.Set(principalContextKey, principalOf(src))
		c.Next()
	}
}

// observe records request counts and latencies per route
func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
