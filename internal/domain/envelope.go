package domain

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response shape returned by every processing path.
type Envelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func SuccessEnvelope(message string, data map[string]any) Envelope {
	return Envelope{Status: StatusSuccess, Message: message, Data: data}
}

func ErrorEnvelope(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// FileInfo is the platform-neutral description of an attachment found in an inbound payload.
type FileInfo struct {
	RemoteID     string   `json:"file_id,omitempty"`
	RemoteUnique string   `json:"file_unique_id,omitempty"`
	URL          string   `json:"url,omitempty"`
	Filename     string   `json:"filename"`
	FileType     FileType `json:"file_type"`
	ContentType  string   `json:"content_type,omitempty"`
	Size         int64    `json:"file_size,omitempty"`
	MessageID    string   `json:"message_id,omitempty"`
	SenderNumber string   `json:"sender_number"`
	SenderName   string   `json:"sender_username,omitempty"`
	ChatID       int64    `json:"chat_id,omitempty"`
	Timestamp    string   `json:"timestamp,omitempty"`
}
