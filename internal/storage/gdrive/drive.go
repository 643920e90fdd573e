package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aniladanir/file-relay-service/internal/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	uploadFields   = "id, name, size, webViewLink, webContentLink"
)

// Backend stores files in Google Drive. It is authenticated once and safe for concurrent use.
type Backend struct {
	svc *drive.Service
}

// NewServiceAccountBackend authenticates with a service account key file
func NewServiceAccountBackend(ctx context.Context, credentialsFile string) (*Backend, error) {
	key, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, key, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	return NewBackend(ctx, option.WithCredentials(creds))
}

// NewBackend builds the Drive service from raw client options
func NewBackend(ctx context.Context, opts ...option.ClientOption) (*Backend, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Backend{svc: svc}, nil
}

func (b *Backend) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	res, err := b.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, folderErr(err)
	}

	// several matches are possible after a creation race, any of them will do
	for _, f := range res.Files {
		if f.Name == name {
			return f.Id, true, nil
		}
	}
	return "", false, nil
}

func (b *Backend) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	folder, err := b.svc.Files.Create(meta).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", folderErr(err)
	}
	return folder.Id, nil
}

func (b *Backend) Upload(ctx context.Context, file storage.File) (*storage.UploadedFile, error) {
	meta := &drive.File{
		Name: file.Name,
	}
	if file.FolderID != "" {
		meta.Parents = []string{file.FolderID}
	}

	mediaOpts := []googleapi.MediaOption{}
	if file.MimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(file.MimeType))
	}

	created, err := b.svc.Files.Create(meta).
		Media(bytes.NewReader(file.Content), mediaOpts...).
		Fields(uploadFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, folderErr(err)
	}

	link := created.WebViewLink
	if link == "" {
		link = created.WebContentLink
	}

	return &storage.UploadedFile{
		ID:         created.Id,
		Name:       created.Name,
		Size:       created.Size,
		SharedLink: link,
	}, nil
}

// folderErr marks a Drive 404 as a missing folder, the only resource these calls address
func folderErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", storage.ErrFolderNotFound, err)
	}
	return err
}

// escapeQuery escapes a literal for use inside a quoted Drive query string
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
