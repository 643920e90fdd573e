package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/metrics"
	"github.com/aniladanir/file-relay-service/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// attachment fields in the order they are looked up, with the file type each maps to
var telegramFileFields = []struct {
	name     string
	fileType domain.FileType
}{
	{"photo", domain.FileTypeImage},
	{"video", domain.FileTypeVideo},
	{"document", domain.FileTypeDocument},
	{"audio", domain.FileTypeAudio},
	{"voice", domain.FileTypeAudio},
	{"video_note", domain.FileTypeVideo},
	{"sticker", domain.FileTypeImage},
	{"animation", domain.FileTypeVideo},
}

type telegramFile struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
}

type telegramUpdate struct {
	update tgbotapi.Update
	fields map[string]json.RawMessage
}

func parseTelegramUpdate(p Payload) (*telegramUpdate, error) {
	raw := p.Raw()
	if len(raw) == 0 {
		return nil, &domain.MalformedPayloadError{Reason: "empty Telegram update"}
	}

	var u telegramUpdate
	if err := json.Unmarshal(raw, &u.update); err != nil {
		return nil, &domain.MalformedPayloadError{Reason: "invalid Telegram update", Err: err}
	}

	var envelope struct {
		Message map[string]json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &domain.MalformedPayloadError{Reason: "invalid Telegram update", Err: err}
	}
	u.fields = envelope.Message
	return &u, nil
}

// present reports whether a message field holds a non-empty value
func present(v json.RawMessage) bool {
	var value any
	if err := json.Unmarshal(v, &value); err != nil {
		return false
	}
	switch x := value.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

func (u *telegramUpdate) attachment() (domain.FileType, *telegramFile, error) {
	for _, field := range telegramFileFields {
		raw, ok := u.fields[field.name]
		if !ok || !present(raw) {
			continue
		}

		var file telegramFile
		if field.name == "photo" {
			var sizes []telegramFile
			if err := json.Unmarshal(raw, &sizes); err != nil {
				return "", nil, err
			}
			if len(sizes) == 0 {
				return "", nil, errors.New("empty photo list")
			}
			// sizes are ordered, the last one is the largest
			file = sizes[len(sizes)-1]
		} else if err := json.Unmarshal(raw, &file); err != nil {
			return "", nil, err
		}
		return field.fileType, &file, nil
	}
	return "", nil, errors.New("no attachment")
}

func (u *telegramUpdate) sender() string {
	msg := u.update.Message
	if msg.From != nil {
		return strconv.FormatInt(msg.From.ID, 10)
	}
	if msg.Chat != nil {
		return strconv.FormatInt(msg.Chat.ID, 10)
	}
	return ""
}

func (u *telegramUpdate) chatID() int64 {
	if u.update.Message.Chat != nil {
		return u.update.Message.Chat.ID
	}
	return 0
}

// Telegram relays files sent to a bot. It never replies to the sender.
type Telegram struct {
	source       *domain.Source
	deps         Deps
	apiEndpoint  string
	fileEndpoint string
	logger       *slog.Logger
}

func NewTelegram(src *domain.Source, deps Deps) *Telegram {
	apiEndpoint, fileEndpoint := deps.TelegramAPIEndpoint, deps.TelegramFileEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if fileEndpoint == "" {
		fileEndpoint = tgbotapi.FileEndpoint
	}

	return &Telegram{
		source:       src,
		deps:         deps,
		apiEndpoint:  apiEndpoint,
		fileEndpoint: fileEndpoint,
		logger:       deps.Logger.With(slog.String("platform", string(domain.PlatformTelegram))),
	}
}

func (t *Telegram) Platform() domain.Platform {
	return domain.PlatformTelegram
}

func (t *Telegram) ValidateMessage(p Payload) bool {
	u, err := parseTelegramUpdate(p)
	if err != nil {
		return false
	}
	return u.hasFile()
}

func (u *telegramUpdate) hasFile() bool {
	for _, field := range telegramFileFields {
		if raw, ok := u.fields[field.name]; ok && present(raw) {
			return true
		}
	}
	return false
}

func (t *Telegram) ExtractFileInfo(p Payload) *domain.FileInfo {
	u, err := parseTelegramUpdate(p)
	if err != nil || u.update.Message == nil {
		return nil
	}
	return t.extract(u)
}

func (t *Telegram) extract(u *telegramUpdate) *domain.FileInfo {
	fileType, file, err := u.attachment()
	if err != nil {
		t.logger.Warn("could not extract attachment", "error", err.Error())
		return nil
	}
	if file.FileID == "" {
		return nil
	}

	filename := file.FileName
	if filename == "" {
		filename = WithExtension("telegram_file_"+file.FileUniqueID, file.MimeType)
	}

	msg := u.update.Message
	info := &domain.FileInfo{
		RemoteID:     file.FileID,
		RemoteUnique: file.FileUniqueID,
		Filename:     filename,
		FileType:     fileType,
		ContentType:  file.MimeType,
		Size:         file.FileSize,
		MessageID:    strconv.Itoa(msg.MessageID),
		SenderNumber: u.sender(),
		ChatID:       u.chatID(),
		Timestamp:    strconv.Itoa(msg.Date),
	}
	if msg.From != nil {
		info.SenderName = msg.From.UserName
	}
	return info
}

func (t *Telegram) ProcessMessage(ctx context.Context, p Payload) (status int, env domain.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic while processing message", "panic", r)
			status, env = http.StatusInternalServerError, panicEnvelope("Telegram", r)
		}
	}()

	u, err := parseTelegramUpdate(p)
	if err != nil {
		return http.StatusBadRequest, domain.ErrorEnvelope(err.Error())
	}
	if u.update.Message == nil {
		return http.StatusBadRequest, domain.ErrorEnvelope("No se encontró mensaje en el update de Telegram")
	}

	msg := u.update.Message
	sender := u.sender()
	if sender == "" {
		return http.StatusBadRequest, domain.ErrorEnvelope("Mensaje de Telegram sin remitente")
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	record := service.RecordInput{
		Source:            t.source,
		SenderNumber:      sender,
		PlatformMessageID: strconv.Itoa(msg.MessageID),
		MessageText:       text,
	}
	data := map[string]any{
		"sender_number": sender,
		"platform":      string(domain.PlatformTelegram),
		"has_file":      false,
		"chat_id":       u.chatID(),
		"message_id":    msg.MessageID,
	}

	var info *domain.FileInfo
	if u.hasFile() {
		info = t.extract(u)
	}
	if info == nil {
		saved, err := t.deps.Messages.Record(ctx, record)
		if err != nil {
			return t.recordFailed(sender, err, data)
		}
		data["db_message_id"] = messageID(saved)
		return http.StatusOK, domain.SuccessEnvelope("Mensaje sin archivo", data)
	}

	data["has_file"] = true
	data["file_info"] = info

	result, err := t.relay(ctx, info, sender)
	if err != nil {
		metrics.RelayFailures.WithLabelValues(string(domain.PlatformTelegram), domain.FailureReason(err)).Inc()
		t.logger.Error("failed to relay file", "sender", sender, "filename", info.Filename, "error", err.Error())

		if saved, recErr := t.deps.Messages.Record(ctx, record); recErr != nil {
			t.logger.Error("failed to record message", "sender", sender, "error", recErr.Error())
		} else {
			data["db_message_id"] = messageID(saved)
		}
		return http.StatusInternalServerError, failureEnvelope("Telegram", err, data)
	}

	stored := result.StoredFile(info.FileType, info.ContentType)
	record.File = &stored
	data["drive_info"] = result

	saved, err := t.deps.Messages.Record(ctx, record)
	if err != nil {
		t.logger.Error("file stored but message not recorded", "sender", sender, "driveFileId", result.FileID)
		return t.recordFailed(sender, err, data)
	}
	metrics.FilesRelayed.WithLabelValues(string(domain.PlatformTelegram), string(info.FileType)).Inc()

	data["db_message_id"] = messageID(saved)
	return http.StatusOK, domain.SuccessEnvelope("Archivo recibido y procesado", data)
}

func (t *Telegram) relay(ctx context.Context, info *domain.FileInfo, sender string) (*service.UploadResult, error) {
	token := t.source.Credentials()[domain.CredBotToken]
	if token == "" {
		return nil, &domain.ConfigurationError{Source: domain.PlatformTelegram, Reason: "missing bot token"}
	}

	content, err := t.download(ctx, token, info.RemoteID)
	if err != nil {
		return nil, err
	}
	if info.Size == 0 {
		info.Size = int64(len(content))
	}
	info.ContentType = ResolveMimeType(info.ContentType, content, info.FileType)

	return t.deps.Storage.UploadFromMessage(ctx, service.UploadInput{
		Content:      content,
		Filename:     info.Filename,
		SenderNumber: sender,
		FileType:     info.FileType,
		MimeType:     info.ContentType,
	})
}

// download resolves the file path with getFile, then fetches the bytes from the file endpoint
func (t *Telegram) download(ctx context.Context, token, fileID string) ([]byte, error) {
	getFileURL := fmt.Sprintf(t.apiEndpoint, token, "getFile") + "?file_id=" + url.QueryEscape(fileID)

	body, err := t.deps.Downloader.Fetch(ctx, domain.PlatformTelegram, getRequest(getFileURL))
	if err != nil {
		return nil, err
	}

	var resp tgbotapi.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.DownloadError{Platform: domain.PlatformTelegram, Err: fmt.Errorf("invalid getFile response: %w", err)}
	}
	if !resp.Ok {
		return nil, &domain.DownloadError{Platform: domain.PlatformTelegram, StatusCode: resp.ErrorCode, Err: errors.New(resp.Description)}
	}

	var file tgbotapi.File
	if err := json.Unmarshal(resp.Result, &file); err != nil || file.FilePath == "" {
		return nil, &domain.DownloadError{Platform: domain.PlatformTelegram, Err: errors.New("getFile returned no file path")}
	}

	return t.deps.Downloader.Fetch(ctx, domain.PlatformTelegram, getRequest(fmt.Sprintf(t.fileEndpoint, token, file.FilePath)))
}

func getRequest(target string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}
}

func (t *Telegram) recordFailed(sender string, err error, data map[string]any) (int, domain.Envelope) {
	metrics.RelayFailures.WithLabelValues(string(domain.PlatformTelegram), "record").Inc()
	t.logger.Error("failed to record message", "sender", sender, "error", err.Error())
	return http.StatusInternalServerError, failureEnvelope("Telegram", err, data)
}
