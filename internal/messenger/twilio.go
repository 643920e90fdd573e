package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/metrics"
	"github.com/google/uuid"
)

const (
	// DefaultTwilioAPIBase is the Messages endpoint template, formatted with the account sid
	DefaultTwilioAPIBase = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"
	// SandboxFromNumber is used when the source has no sender number configured
	SandboxFromNumber = "whatsapp:+14155238886"

	maxErrorBody = 1024
)

type SendResult struct {
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"message_sid,omitempty"`
	Status            string `json:"status,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Sender posts text replies to a messaging platform. Failures are reported in the result, never returned.
type Sender interface {
	SendMessage(ctx context.Context, to, text string) SendResult
	SendFileUploaded(ctx context.Context, to, filename, companyName, sharedLink string) SendResult
	SendNoFile(ctx context.Context, to string) SendResult
	SendError(ctx context.Context, to, detail string) SendResult
}

type twilioSender struct {
	httpClient *http.Client
	endpoint   string
	accountSID string
	authToken  string
	from       string
	logger     *slog.Logger
}

// NewTwilioSender creates a WhatsApp sender from the source credentials (slot 1 account sid,
// slot 2 auth token, slot 3 optional from number). apiBase is a template taking the account sid.
func NewTwilioSender(httpClient *http.Client, apiBase string, src *domain.Source, logger *slog.Logger) Sender {
	if apiBase == "" {
		apiBase = DefaultTwilioAPIBase
	}
	creds := src.Credentials()
	from := creds[domain.CredFromNumber]
	if from == "" {
		from = SandboxFromNumber
	} else if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + NormalizeNumber(from)
	}

	return &twilioSender{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf(apiBase, creds[domain.CredAccountSID]),
		accountSID: creds[domain.CredAccountSID],
		authToken:  creds[domain.CredAuthToken],
		from:       from,
		logger:     logger,
	}
}

func (s *twilioSender) SendMessage(ctx context.Context, to, text string) SendResult {
	result := s.send(ctx, to, text)
	if result.Success {
		metrics.RepliesSent.WithLabelValues("sent").Inc()
	} else {
		metrics.RepliesSent.WithLabelValues("failed").Inc()
	}
	return result
}

func (s *twilioSender) send(ctx context.Context, to, text string) SendResult {
	if s.accountSID == "" || s.authToken == "" {
		return SendResult{Error: "twilio credentials are not configured"}
	}

	number := NormalizeNumber(to)
	reqLogger := s.logger.With(slog.String("to", number))

	resp, err := s.doMsgRequest(ctx, number, text)
	if err != nil {
		reqLogger.Error("failed to send reply", "error", err.Error())
		return SendResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		reqLogger.Error("reply rejected", "statusCode", resp.StatusCode, "requestId", resp.Request.Header.Get("X-Request-ID"))
		return SendResult{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var created struct {
		Sid    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		reqLogger.Warn("failed to decode reply response", "error", err.Error())
	}
	reqLogger.Info("reply sent", "messageSid", created.Sid)

	return SendResult{Success: true, ProviderMessageID: created.Sid, Status: created.Status}
}

func (s *twilioSender) doMsgRequest(ctx context.Context, to, text string) (*http.Response, error) {
	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("X-Request-ID", uuid.NewString())

	return s.httpClient.Do(req)
}

func (s *twilioSender) SendFileUploaded(ctx context.Context, to, filename, companyName, sharedLink string) SendResult {
	return s.SendMessage(ctx, to, FileUploadedText(filename, companyName, sharedLink))
}

func (s *twilioSender) SendNoFile(ctx context.Context, to string) SendResult {
	return s.SendMessage(ctx, to, NoFileText)
}

func (s *twilioSender) SendError(ctx context.Context, to, detail string) SendResult {
	return s.SendMessage(ctx, to, ErrorText(detail))
}

// NormalizeNumber strips spaces and a whatsapp: prefix and makes sure the number starts with +
func NormalizeNumber(number string) string {
	n := strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	n = strings.ReplaceAll(n, " ", "")
	if !strings.HasPrefix(n, "+") {
		n = "+" + n
	}
	return n
}
