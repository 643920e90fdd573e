package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/events"
	messageRepo "github.com/aniladanir/file-relay-service/internal/repository/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	events []events.Envelope
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, msg events.Envelope) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newMessageFixture(t *testing.T) (*tenants, MessageService, *recordingPublisher, *domain.Source) {
	t.Helper()
	tn := newTenants(t)
	src := &domain.Source{Name: domain.PlatformWhatsApp, IsActive: true, APIKey: "k", Additional1: "AC1", Additional2: "tok"}
	require.NoError(t, tn.db.Create(src).Error)

	publisher := &recordingPublisher{}
	svc := NewMessageService(messageRepo.NewMessageRepository(tn.db), tn.directory, publisher, testLogger())
	return tn, svc, publisher, src
}

func TestRecord_WithFile(t *testing.T) {
	tn, svc, publisher, src := newMessageFixture(t)

	msg, err := svc.Record(context.Background(), RecordInput{
		Source:            src,
		SenderNumber:      "+2000",
		CompanyPhone:      "+2000",
		PlatformMessageID: "SM1",
		MessageText:       "adjunto",
		File: &domain.StoredFile{
			Filename:   "a_20250115_093005.pdf",
			FileType:   domain.FileTypeDocument,
			Size:       4,
			FileID:     "file-1",
			SharedLink: "https://drive.example/file/file-1/view",
			FolderPath: "/Acme/+2000/2025/01/15",
		},
	})
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.True(t, msg.HasFile())
	require.NotNil(t, msg.UserID)
	assert.Equal(t, tn.user.ID, *msg.UserID)
	require.NotNil(t, msg.CompanyID)
	assert.Equal(t, tn.acme.ID, *msg.CompanyID)

	stored, err := svc.GetMessage(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "file-1", stored.DriveFileID)
	assert.Equal(t, "/Acme/+2000/2025/01/15", stored.DriveFolderPath)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.MessageRecorded, publisher.keys[0])
	data := publisher.events[0].Data.(events.MessageRecordedData)
	assert.Equal(t, msg.ID, data.MessageID)
	assert.Equal(t, "whatsapp", data.Source)
	assert.True(t, data.HasFile)
	assert.Equal(t, "file-1", data.DriveFileID)
	assert.NotEmpty(t, publisher.events[0].Meta.ID)
}

func TestRecord_WithoutFile(t *testing.T) {
	_, svc, _, src := newMessageFixture(t)

	msg, err := svc.Record(context.Background(), RecordInput{Source: src, SenderNumber: "+9999", MessageText: "hola"})
	require.NoError(t, err)

	assert.False(t, msg.HasFile())
	assert.Empty(t, msg.Filename)
	assert.Nil(t, msg.FileSize)
	assert.Nil(t, msg.UserID)
	// unknown sender lands on the first active company
	require.NotNil(t, msg.CompanyID)
}

func TestRecord_PublishFailureIgnored(t *testing.T) {
	_, svc, publisher, src := newMessageFixture(t)
	publisher.err = errors.New("broker down")

	msg, err := svc.Record(context.Background(), RecordInput{Source: src, SenderNumber: "+2000"})
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
}

func TestRecord_Invalid(t *testing.T) {
	_, svc, publisher, src := newMessageFixture(t)

	_, err := svc.Record(context.Background(), RecordInput{Source: src})
	var pldErr *domain.MalformedPayloadError
	assert.ErrorAs(t, err, &pldErr)

	_, err = svc.Record(context.Background(), RecordInput{SenderNumber: "+1"})
	assert.ErrorAs(t, err, &pldErr)
	assert.Empty(t, publisher.events)
}

func TestListAndSummary(t *testing.T) {
	ctx := context.Background()
	_, svc, _, src := newMessageFixture(t)

	_, err := svc.Record(ctx, RecordInput{Source: src, SenderNumber: "+2000", File: &domain.StoredFile{Filename: "a.jpg", FileType: domain.FileTypeImage, FileID: "f1"}})
	require.NoError(t, err)
	_, err = svc.Record(ctx, RecordInput{Source: src, SenderNumber: "+2000"})
	require.NoError(t, err)

	msgs, err := svc.ListMessages(ctx, domain.MessageFilter{WithFiles: true})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	summary, err := svc.Summary(ctx, domain.MessageFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalMessages)
	assert.Equal(t, int64(1), summary.TotalFiles)
	assert.Equal(t, int64(1), summary.FilesBySender["+2000"])
}
