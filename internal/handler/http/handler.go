package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	_ "github.com/aniladanir/file-relay-service/docs"
	"github.com/aniladanir/file-relay-service/internal/dispatch"
	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/service"
	"github.com/aniladanir/file-relay-service/internal/strategy"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	maxWebhookBody      = 10 << 20
	defaultListLimit    = 100
	maxListLimit        = 1000
	principalContextKey = "principal"
)

// WebhookDispatcher hands an inbound webhook to the platform pipeline
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, platform string, in dispatch.Inbound) (int, domain.Envelope)
}

type ServiceInfo struct {
	Name    string
	Version string
}

type Handler struct {
	dispatcher WebhookDispatcher
	sources    service.SourceRegistry
	messages   service.MessageService
	info       ServiceInfo
	server     *http.Server
	logger     *slog.Logger
}

// @title File Relay API
// @version 1.0
// @description Receives messaging platform webhooks and relays attached files to Google Drive
// @host localhost:8000
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func NewHttpHandler(addr string, dispatcher WebhookDispatcher, sources service.SourceRegistry, messages service.MessageService, info ServiceInfo, logger *slog.Logger) *Handler {
	h := &Handler{
		dispatcher: dispatcher,
		sources:    sources,
		messages:   messages,
		info:       info,
		logger:     logger,
	}

	// create router
	router := gin.Default()
	router.Use(observe())

	// register routes
	router.POST("/webhook/:platform", h.receiveWebhook)
	router.POST("/webhook/:platform/", h.receiveWebhook)
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api", h.apiKeyAuth())
	api.GET("/messages", h.listMessages)
	api.GET("/messages/summary", h.messageSummary)
	api.GET("/messages/:id", h.getMessage)
	api.GET("/platforms", h.listPlatforms)

	// create http server
	h.server = &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// ServeHTTP exposes the router, mostly for tests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.server.Handler.ServeHTTP(w, r)
}

// ReceiveWebhook godoc
// @Summary Receive a platform webhook
// @Description Processes a WhatsApp (Twilio form) or Telegram (JSON update) webhook, relaying any attached file to Drive
// @Tags Webhooks
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param platform path string true "Platform name" Enums(whatsapp, telegram)
// @Success 200 {object} domain.Envelope
// @Failure 400 {object} domain.Envelope
// @Failure 404 {object} domain.Envelope
// @Failure 413 {object} domain.Envelope
// @Failure 500 {object} domain.Envelope
// @Router /webhook/{platform} [post]
func (h *Handler) receiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorEnvelope("No se pudo leer el cuerpo de la solicitud"))
		return
	}
	if len(body) > maxWebhookBody {
		c.JSON(http.StatusRequestEntityTooLarge, domain.ErrorEnvelope("El cuerpo de la solicitud es demasiado grande"))
		return
	}

	// processing outlives a caller that hangs up, the file and its record are kept consistent
	ctx := context.WithoutCancel(c.Request.Context())

	status, env := h.dispatcher.Dispatch(ctx, c.Param("platform"), dispatch.Inbound{
		ContentType: c.GetHeader("Content-Type"),
		Body:        body,
	})
	c.JSON(status, env)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health godoc
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: h.info.Name,
		Version: h.info.Version,
	})
}

// ListMessages godoc
// @Summary List recorded messages
// @Description Newest first. Dates accept RFC 3339 or YYYY-MM-DD.
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Param sender query string false "Sender number"
// @Param company_id query int false "Company id"
// @Param source_id query int false "Source id"
// @Param file_type query string false "File type" Enums(image, video, document, audio, other)
// @Param with_files query bool false "Only messages with a stored file"
// @Param from query string false "Created at or after"
// @Param to query string false "Created at or before"
// @Param limit query int false "Maximum results"
// @Success 200 {object} domain.Envelope
// @Failure 400 {object} domain.Envelope
// @Failure 401 {object} domain.Envelope
// @Router /api/messages [get]
func (h *Handler) listMessages(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorEnvelope(err.Error()))
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err.Error())
		c.JSON(http.StatusInternalServerError, domain.ErrorEnvelope("Error consultando mensajes"))
		return
	}

	c.JSON(http.StatusOK, domain.SuccessEnvelope("Mensajes", map[string]any{
		"count":    len(msgs),
		"messages": msgs,
	}))
}

// GetMessage godoc
// @Summary Get a recorded message
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Message id"
// @Success 200 {object} domain.Envelope
// @Failure 401 {object} domain.Envelope
// @Failure 404 {object} domain.Envelope
// @Router /api/messages/{id} [get]
func (h *Handler) getMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorEnvelope("Identificador de mensaje inválido"))
		return
	}

	msg, err := h.messages.GetMessage(c.Request.Context(), uint(id))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, domain.ErrorEnvelope(fmt.Sprintf("Mensaje no encontrado: %d", id)))
		return
	} else if err != nil {
		h.logger.Error("failed to get message", "id", id, "error", err.Error())
		c.JSON(http.StatusInternalServerError, domain.ErrorEnvelope("Error consultando mensaje"))
		return
	}

	c.JSON(http.StatusOK, domain.SuccessEnvelope("Mensaje", map[string]any{"message": msg}))
}

// MessageSummary godoc
// @Summary Message and file totals
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Param company_id query int false "Company id"
// @Param from query string false "Created at or after"
// @Param to query string false "Created at or before"
// @Success 200 {object} domain.Envelope
// @Failure 401 {object} domain.Envelope
// @Router /api/messages/summary [get]
func (h *Handler) messageSummary(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.ErrorEnvelope(err.Error()))
		return
	}

	summary, err := h.messages.Summary(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to summarize messages", "error", err.Error())
		c.JSON(http.StatusInternalServerError, domain.ErrorEnvelope("Error consultando resumen"))
		return
	}

	c.JSON(http.StatusOK, domain.SuccessEnvelope("Resumen de mensajes", map[string]any{"summary": summary}))
}

// ListPlatforms godoc
// @Summary Supported platforms
// @Tags Sources
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} domain.Envelope
// @Failure 401 {object} domain.Envelope
// @Router /api/platforms [get]
func (h *Handler) listPlatforms(c *gin.Context) {
	principal, _ := PrincipalFrom(c)
	c.JSON(http.StatusOK, domain.SuccessEnvelope("Plataformas soportadas", map[string]any{
		"platforms": strategy.SupportedPlatforms(),
		"source":    principal,
	}))
}

func parseFilter(c *gin.Context) (domain.MessageFilter, error) {
	filter := domain.MessageFilter{
		SenderNumber: c.Query("sender"),
		FileType:     domain.FileType(c.Query("file_type")),
		Limit:        defaultListLimit,
	}

	var err error
	if filter.CompanyID, err = parseUintQuery(c, "company_id"); err != nil {
		return filter, err
	}
	if filter.SourceID, err = parseUintQuery(c, "source_id"); err != nil {
		return filter, err
	}
	if v := c.Query("with_files"); v != "" {
		if filter.WithFiles, err = strconv.ParseBool(v); err != nil {
			return filter, fmt.Errorf("Parámetro inválido with_files: %s", v)
		}
	}
	if filter.From, err = parseTimeQuery(c, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeQuery(c, "to", true); err != nil {
		return filter, err
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("Parámetro inválido limit: %s", v)
		}
		filter.Limit = min(limit, maxListLimit)
	}

	return filter, nil
}

func parseUintQuery(c *gin.Context, key string) (uint, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("Parámetro inválido %s: %s", key, v)
	}
	return uint(n), nil
}

// parseTimeQuery accepts RFC 3339 or a plain date. A plain date used as an upper bound covers the whole day.
func parseTimeQuery(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("Parámetro inválido %s: %s", key, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
