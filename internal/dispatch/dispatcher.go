package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/metrics"
	"github.com/aniladanir/file-relay-service/internal/service"
	"github.com/aniladanir/file-relay-service/internal/strategy"
)

// Inbound is a raw webhook request body
type Inbound struct {
	ContentType string
	Body        []byte
}

// Dispatcher routes a webhook to the strategy of its platform's source
type Dispatcher struct {
	sources service.SourceRegistry
	deps    strategy.Deps
	logger  *slog.Logger
}

func NewDispatcher(sources service.SourceRegistry, deps strategy.Deps, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sources: sources,
		deps:    deps,
		logger:  logger,
	}
}

// Dispatch resolves the active source named platform, validates it and hands the payload to its strategy.
// The strategy's status and envelope are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, platform string, in Inbound) (status int, env domain.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while dispatching webhook", "platform", platform, "panic", r)
			status, env = http.StatusInternalServerError, domain.ErrorEnvelope(fmt.Sprintf("Error procesando archivo: %v", r))
		}
		metrics.WebhooksTotal.WithLabelValues(platformLabel(platform), strconv.Itoa(status)).Inc()
	}()

	src, err := d.sources.FindByPlatformName(ctx, platform)
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound, domain.ErrorEnvelope(fmt.Sprintf("Fuente no encontrada o inactiva: %s", platform))
	} else if err != nil {
		d.logger.Error("failed to look up source", "platform", platform, "error", err.Error())
		return http.StatusInternalServerError, domain.ErrorEnvelope(fmt.Sprintf("Error procesando archivo: %v", err))
	}

	if !d.sources.Validate(src) {
		d.logger.Warn("source failed validation", "platform", platform, "sourceId", src.ID)
		return http.StatusBadRequest, domain.ErrorEnvelope("Fuente no válida o no configurada correctamente")
	}

	strat, err := strategy.New(src, d.deps)
	if err != nil {
		var platErr *domain.UnsupportedPlatformError
		if errors.As(err, &platErr) {
			return http.StatusBadRequest, domain.ErrorEnvelope(fmt.Sprintf("Plataforma no soportada: %s", platform))
		}
		return http.StatusInternalServerError, domain.ErrorEnvelope(fmt.Sprintf("Error procesando archivo: %v", err))
	}

	payload, err := strategy.ParsePayload(in.ContentType, in.Body)
	if err != nil {
		d.logger.Warn("malformed webhook payload", "platform", platform, "error", err.Error())
		return http.StatusBadRequest, domain.ErrorEnvelope(fmt.Sprintf("Payload inválido: %v", err))
	}

	return strat.ProcessMessage(ctx, payload)
}

// platformLabel bounds metric cardinality to known platforms
func platformLabel(platform string) string {
	switch domain.Platform(platform) {
	case domain.PlatformWhatsApp, domain.PlatformTelegram, domain.PlatformDiscord:
		return platform
	}
	return "unknown"
}
