package strategy

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/messenger"
	"github.com/aniladanir/file-relay-service/internal/metrics"
	"github.com/aniladanir/file-relay-service/internal/service"
)

var mediaMessageTypes = map[string]bool{
	"document": true,
	"image":    true,
	"video":    true,
	"audio":    true,
}

// WhatsApp relays files sent through the Twilio WhatsApp webhook and answers every message
type WhatsApp struct {
	source  *domain.Source
	deps    Deps
	replies messenger.Sender
	logger  *slog.Logger
}

func NewWhatsApp(src *domain.Source, deps Deps) *WhatsApp {
	return &WhatsApp{
		source:  src,
		deps:    deps,
		replies: deps.replySender(src),
		logger:  deps.Logger.With(slog.String("platform", string(domain.PlatformWhatsApp))),
	}
}

func (w *WhatsApp) Platform() domain.Platform {
	return domain.PlatformWhatsApp
}

func (w *WhatsApp) ValidateMessage(p Payload) bool {
	if p.Get("MediaUrl0") != "" && p.Get("MediaContentType0") != "" {
		return true
	}
	return mediaMessageTypes[p.Get("MessageType")]
}

func (w *WhatsApp) ExtractFileInfo(p Payload) *domain.FileInfo {
	mediaURL := p.Get("MediaUrl0")
	contentType := p.Get("MediaContentType0")
	if mediaURL == "" || contentType == "" {
		return nil
	}

	filename := p.Get("MediaFileName0")
	if filename == "" {
		filename = WithExtension("file_"+path.Base(strings.TrimRight(mediaURL, "/")), contentType)
	}

	return &domain.FileInfo{
		URL:          mediaURL,
		ContentType:  contentType,
		Filename:     filename,
		FileType:     FileTypeFromMIME(contentType),
		MessageID:    p.Get("MessageSid"),
		Timestamp:    p.Get("Timestamp"),
		SenderNumber: senderNumber(p),
	}
}

func senderNumber(p Payload) string {
	return strings.TrimPrefix(p.Get("From"), "whatsapp:")
}

func (w *WhatsApp) ProcessMessage(ctx context.Context, p Payload) (status int, env domain.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing message", "panic", r)
			status, env = http.StatusInternalServerError, panicEnvelope("WhatsApp", r)
		}
	}()

	sender := senderNumber(p)
	if sender == "" {
		return http.StatusBadRequest, domain.ErrorEnvelope("Mensaje de WhatsApp sin remitente (From)")
	}

	record := service.RecordInput{
		Source:            w.source,
		SenderNumber:      sender,
		CompanyPhone:      sender,
		PlatformMessageID: p.Get("MessageSid"),
		MessageText:       p.Get("Body"),
	}
	data := map[string]any{
		"sender_number": sender,
		"platform":      string(domain.PlatformWhatsApp),
		"has_file":      false,
	}

	if !w.ValidateMessage(p) {
		msg, err := w.deps.Messages.Record(ctx, record)
		if err != nil {
			return w.recordFailed(ctx, sender, err, data)
		}
		w.replies.SendNoFile(ctx, sender)
		data["message_id"] = messageID(msg)
		return http.StatusOK, domain.SuccessEnvelope("Mensaje sin archivo", data)
	}

	info := w.ExtractFileInfo(p)
	if info == nil {
		msg, err := w.deps.Messages.Record(ctx, record)
		if err != nil {
			return w.recordFailed(ctx, sender, err, data)
		}
		w.replies.SendError(ctx, sender, "No se pudo procesar el archivo")
		data["message_id"] = messageID(msg)
		return http.StatusOK, domain.SuccessEnvelope("Mensaje sin archivo (error extrayendo archivo)", data)
	}

	data["has_file"] = true
	data["file_info"] = info

	result, err := w.relay(ctx, info, sender)
	if err != nil {
		metrics.RelayFailures.WithLabelValues(string(domain.PlatformWhatsApp), domain.FailureReason(err)).Inc()
		w.logger.Error("failed to relay file", "sender", sender, "filename", info.Filename, "error", err.Error())

		// the message is kept even though its file is lost
		if msg, recErr := w.deps.Messages.Record(ctx, record); recErr != nil {
			w.logger.Error("failed to record message", "sender", sender, "error", recErr.Error())
		} else {
			data["message_id"] = messageID(msg)
		}
		w.replies.SendError(ctx, sender, replyDetail(err))
		return http.StatusInternalServerError, failureEnvelope("WhatsApp", err, data)
	}

	stored := result.StoredFile(info.FileType, info.ContentType)
	record.File = &stored
	data["drive_info"] = result

	msg, err := w.deps.Messages.Record(ctx, record)
	if err != nil {
		w.logger.Error("file stored but message not recorded", "sender", sender, "driveFileId", result.FileID)
		return w.recordFailed(ctx, sender, err, data)
	}
	metrics.FilesRelayed.WithLabelValues(string(domain.PlatformWhatsApp), string(info.FileType)).Inc()

	w.replies.SendFileUploaded(ctx, sender, result.Filename, result.CompanyName, result.SharedLink)

	data["message_id"] = messageID(msg)
	return http.StatusOK, domain.SuccessEnvelope("Archivo recibido y procesado", data)
}

func (w *WhatsApp) relay(ctx context.Context, info *domain.FileInfo, sender string) (*service.UploadResult, error) {
	creds := w.source.Credentials()
	sid, token := creds[domain.CredAccountSID], creds[domain.CredAuthToken]
	if sid == "" || token == "" {
		return nil, &domain.ConfigurationError{Source: domain.PlatformWhatsApp, Reason: "missing Twilio account sid or auth token"}
	}

	content, err := w.deps.Downloader.Fetch(ctx, domain.PlatformWhatsApp, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(sid, token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	info.Size = int64(len(content))

	return w.deps.Storage.UploadFromMessage(ctx, service.UploadInput{
		Content:      content,
		Filename:     info.Filename,
		SenderNumber: sender,
		FileType:     info.FileType,
		MimeType:     info.ContentType,
		CompanyPhone: sender,
	})
}

func (w *WhatsApp) recordFailed(ctx context.Context, sender string, err error, data map[string]any) (int, domain.Envelope) {
	metrics.RelayFailures.WithLabelValues(string(domain.PlatformWhatsApp), "record").Inc()
	w.logger.Error("failed to record message", "sender", sender, "error", err.Error())
	w.replies.SendError(ctx, sender, "No se pudo registrar el mensaje")
	return http.StatusInternalServerError, failureEnvelope("WhatsApp", err, data)
}
