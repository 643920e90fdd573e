package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/messenger"
	"github.com/aniladanir/file-relay-service/internal/service"
)

// Strategy handles the webhook payloads of one messaging platform
type Strategy interface {
	Platform() domain.Platform
	// ValidateMessage reports whether the payload carries a file
	ValidateMessage(p Payload) bool
	// ExtractFileInfo describes the attached file, nil when none can be extracted
	ExtractFileInfo(p Payload) *domain.FileInfo
	// ProcessMessage runs the whole relay and returns the response status and envelope
	ProcessMessage(ctx context.Context, p Payload) (int, domain.Envelope)
}

// Deps are the collaborators shared by all strategies
type Deps struct {
	Storage    service.StorageService
	Messages   service.MessageService
	Downloader *Downloader
	HTTPClient *http.Client
	// Replies builds the reply sender for a source, defaults to Twilio
	Replies func(src *domain.Source) messenger.Sender

	TwilioAPIBase        string
	TelegramAPIEndpoint  string
	TelegramFileEndpoint string

	Logger *slog.Logger
}

func (d Deps) replySender(src *domain.Source) messenger.Sender {
	if d.Replies != nil {
		return d.Replies(src)
	}
	return messenger.NewTwilioSender(d.HTTPClient, d.TwilioAPIBase, src, d.Logger)
}

type Factory func(src *domain.Source, deps Deps) Strategy

var factories = map[domain.Platform]Factory{
	domain.PlatformWhatsApp: func(src *domain.Source, deps Deps) Strategy { return NewWhatsApp(src, deps) },
	domain.PlatformTelegram: func(src *domain.Source, deps Deps) Strategy { return NewTelegram(src, deps) },
}

// New selects the strategy registered for the source's platform
func New(src *domain.Source, deps Deps) (Strategy, error) {
	if src == nil {
		return nil, &domain.ConfigurationError{Reason: "source is nil"}
	}
	factory, ok := factories[src.Name]
	if !ok {
		return nil, &domain.UnsupportedPlatformError{Platform: string(src.Name)}
	}
	return factory(src, deps), nil
}

// SupportedPlatforms lists the platforms that have a strategy, sorted by name
func SupportedPlatforms() []string {
	platforms := make([]string, 0, len(factories))
	for p := range factories {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)
	return platforms
}

// replyDetail turns a relay failure into the text shown to the sender
func replyDetail(err error) string {
	switch domain.FailureReason(err) {
	case "configuration":
		return "La fuente no está configurada correctamente"
	case "resolution":
		return "No se encontró una compañía asociada a su número"
	case "download":
		return "No se pudo descargar el archivo"
	case "upload":
		return "No se pudo guardar el archivo en Drive"
	}
	return "No se pudo procesar el archivo"
}

func failureEnvelope(platformLabel string, err error, data map[string]any) domain.Envelope {
	env := domain.ErrorEnvelope(fmt.Sprintf("Error procesando archivo de %s (%s): %v", platformLabel, domain.FailureReason(err), err))
	env.Data = data
	return env
}

func panicEnvelope(platformLabel string, r any) domain.Envelope {
	return domain.ErrorEnvelope(fmt.Sprintf("Error procesando mensaje de %s: %v", platformLabel, r))
}

func messageID(msg *domain.Message) any {
	if msg == nil {
		return nil
	}
	return msg.ID
}
