package service

import (
	"context"
	"log/slog"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/events"
	messageRepo "github.com/aniladanir/file-relay-service/internal/repository/message"
	"github.com/google/uuid"
)

type RecordInput struct {
	Source            *domain.Source
	SenderNumber      string
	CompanyPhone      string
	PlatformMessageID string
	MessageText       string
	// File is nil for messages without a stored file
	File *domain.StoredFile
}

type MessageService interface {
	Record(ctx context.Context, in RecordInput) (*domain.Message, error)
	GetMessage(ctx context.Context, id uint) (*domain.Message, error)
	ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error)
	Summary(ctx context.Context, filter domain.MessageFilter) (*domain.MessageSummary, error)
}

type messageService struct {
	repo      messageRepo.Repository
	directory Directory
	publisher events.Publisher
	logger    *slog.Logger
}

func NewMessageService(repo messageRepo.Repository, directory Directory, publisher events.Publisher, logger *slog.Logger) MessageService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &messageService{
		repo:      repo,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

// Record persists one inbound message, attaching the sender's user and company when known
func (s *messageService) Record(ctx context.Context, in RecordInput) (*domain.Message, error) {
	if in.Source == nil || in.SenderNumber == "" {
		return nil, &domain.MalformedPayloadError{Reason: "message has no source or sender"}
	}

	msg := &domain.Message{
		SourceID:          in.Source.ID,
		SenderNumber:      in.SenderNumber,
		PlatformMessageID: in.PlatformMessageID,
		MessageText:       in.MessageText,
	}
	if in.File != nil {
		msg.SetFile(*in.File)
	} else {
		msg.ClearFile()
	}

	user, company, err := s.directory.Resolve(ctx, in.SenderNumber, in.CompanyPhone)
	if err != nil {
		// the message is still worth keeping without its tenant
		s.logger.Warn("failed to resolve sender for message", "sender", in.SenderNumber, "error", err.Error())
	}
	if user != nil {
		msg.UserID = &user.ID
	}
	if company != nil {
		msg.CompanyID = &company.ID
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.logger.Info("message recorded", "messageId", msg.ID, "sender", msg.SenderNumber, "hasFile", msg.HasFile())

	s.publishRecorded(ctx, in.Source, msg)

	return msg, nil
}

func (s *messageService) publishRecorded(ctx context.Context, src *domain.Source, msg *domain.Message) {
	err := s.publisher.Publish(ctx, events.MessageRecorded, events.Envelope{
		Meta: events.Meta{
			ID:         uuid.NewString(),
			Type:       events.MessageRecorded,
			OccurredAt: msg.CreatedAt,
		},
		Data: events.MessageRecordedData{
			MessageID:    msg.ID,
			Source:       string(src.Name),
			SenderNumber: msg.SenderNumber,
			CompanyID:    msg.CompanyID,
			HasFile:      msg.HasFile(),
			FileType:     string(msg.FileType),
			DriveFileID:  msg.DriveFileID,
		},
	})
	if err != nil {
		s.logger.Error("failed to publish message event", "messageId", msg.ID, "error", err.Error())
	}
}

func (s *messageService) GetMessage(ctx context.Context, id uint) (*domain.Message, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *messageService) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	return s.repo.List(ctx, filter)
}

func (s *messageService) Summary(ctx context.Context, filter domain.MessageFilter) (*domain.MessageSummary, error) {
	return s.repo.Summary(ctx, filter)
}
