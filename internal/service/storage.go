package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/aniladanir/file-relay-service/internal/storage"
)

const timestampLayout = "20060102_150405"

type UploadInput struct {
	Content      []byte
	Filename     string
	SenderNumber string
	FileType     domain.FileType
	MimeType     string
	CompanyPhone string
}

type UploadResult struct {
	FileID      string `json:"drive_file_id"`
	SharedLink  string `json:"drive_shared_link"`
	FolderPath  string `json:"drive_folder_path"`
	Filename    string `json:"filename"`
	Size        int64  `json:"file_size"`
	CompanyName string `json:"company_name"`
	UserID      *uint  `json:"user_id"`
}

// StoredFile shapes the result for the message record
func (r *UploadResult) StoredFile(fileType domain.FileType, contentType string) domain.StoredFile {
	return domain.StoredFile{
		Filename:    r.Filename,
		FileType:    fileType,
		Size:        r.Size,
		ContentType: contentType,
		FileID:      r.FileID,
		SharedLink:  r.SharedLink,
		FolderPath:  r.FolderPath,
	}
}

type StorageService interface {
	UploadFromMessage(ctx context.Context, in UploadInput) (*UploadResult, error)
}

type storageService struct {
	directory    Directory
	client       *storage.Client
	rootFolderID string
	now          func() time.Time
	logger       *slog.Logger
}

// NewStorageService creates the orchestrator that files message attachments under
// /{company}/{sender}/{year}/{month}/{day}. rootFolderID is the parent of company folders,
// empty for the backend root.
func NewStorageService(directory Directory, client *storage.Client, rootFolderID string, logger *slog.Logger) StorageService {
	return &storageService{
		directory:    directory,
		client:       client,
		rootFolderID: rootFolderID,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *storageService) UploadFromMessage(ctx context.Context, in UploadInput) (*UploadResult, error) {
	user, company, err := s.directory.Resolve(ctx, in.SenderNumber, in.CompanyPhone)
	if err != nil {
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			return nil, err
		}
		return nil, &domain.ResolutionError{SenderNumber: in.SenderNumber, Err: err}
	}
	if company == nil {
		return nil, &domain.ResolutionError{SenderNumber: in.SenderNumber}
	}

	now := s.now()
	dateSegments := []string{
		in.SenderNumber,
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
	}

	// a company with its own folder is scoped to it, others get a folder under the root
	rootID := company.DriveFolderID
	segments := dateSegments
	if rootID == "" {
		rootID = s.rootFolderID
		segments = append([]string{company.Name}, dateSegments...)
	}

	uploaded, err := s.store(ctx, rootID, segments, storage.File{
		Name:     UniqueFilename(in.Filename, now),
		MimeType: in.MimeType,
		Content:  in.Content,
	})
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		FileID:      uploaded.ID,
		SharedLink:  uploaded.SharedLink,
		FolderPath:  "/" + strings.Join(append([]string{company.Name}, dateSegments...), "/"),
		Filename:    uploaded.Name,
		Size:        uploaded.Size,
		CompanyName: company.Name,
	}
	if user != nil {
		result.UserID = &user.ID
	}

	s.logger.Info("file stored for message",
		"filename", result.Filename,
		"company", company.Name,
		"folderPath", result.FolderPath,
		"fileType", string(in.FileType))

	return result, nil
}

// store resolves the target folder and uploads into it. When a cached folder turns out to be
// gone, the cached path is forgotten and resolved once more.
func (s *storageService) store(ctx context.Context, rootID string, segments []string, file storage.File) (*storage.UploadedFile, error) {
	uploaded, err := s.resolveAndUpload(ctx, rootID, segments, file)
	if !errors.Is(err, storage.ErrFolderNotFound) {
		return uploaded, err
	}

	s.logger.Warn("stale folder, resolving path again", "path", strings.Join(segments, "/"), "error", err.Error())
	s.client.ForgetPath(ctx, rootID, segments)
	return s.resolveAndUpload(ctx, rootID, segments, file)
}

func (s *storageService) resolveAndUpload(ctx context.Context, rootID string, segments []string, file storage.File) (*storage.UploadedFile, error) {
	folderID, err := s.client.ResolvePath(ctx, rootID, segments)
	if err != nil {
		return nil, err
	}
	file.FolderID = folderID
	return s.client.Upload(ctx, file)
}

// UniqueFilename inserts a second-granularity timestamp between base name and extension.
// Two uploads of the same name within one second produce the same result.
func UniqueFilename(filename string, ts time.Time) string {
	stamp := ts.Format(timestampLayout)

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == "/" || name == "" {
		return "file_" + stamp
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// dotfile such as ".env": the whole name is the base
		base, ext = name, ""
	}

	return base + "_" + stamp + ext
}
