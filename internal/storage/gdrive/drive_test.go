package gdrive

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/aniladanir/file-relay-service/internal/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu      sync.Mutex
	queries []string
	created []map[string]any
	files   []map[string]string

	uploads      []upload
	uploadResult map[string]any
	uploadStatus int
}

// upload is one multipart media upload as received by the server
type upload struct {
	path        string
	meta        map[string]any
	contentType string
	content     []byte
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Query().Get("uploadType") == "multipart":
		up, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.uploads = append(f.uploads, up)
		if f.uploadStatus != 0 {
			w.WriteHeader(f.uploadStatus)
			io.WriteString(w, `{"error":{"code":404,"message":"File not found: day-folder."}}`)
			return
		}
		json.NewEncoder(w).Encode(f.uploadResult)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]any{"files": f.files})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		json.NewEncoder(w).Encode(map[string]any{"id": "new-folder"})
	default:
		http.NotFound(w, r)
	}
}

func readUpload(r *http.Request) (upload, error) {
	up := upload{path: r.URL.Path}
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return up, err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := mr.NextPart()
	if err != nil {
		return up, err
	}
	if err := json.NewDecoder(metaPart).Decode(&up.meta); err != nil {
		return up, err
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		return up, err
	}
	up.contentType = mediaPart.Header.Get("Content-Type")
	up.content, err = io.ReadAll(mediaPart)
	return up, err
}

func newTestBackend(t *testing.T, fake *fakeDrive) *Backend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	b, err := NewBackend(context.Background(),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return b
}

func TestFindFolder_Found(t *testing.T) {
	fake := &fakeDrive{files: []map[string]string{{"id": "f-1", "name": "Acme"}}}
	b := newTestBackend(t, fake)

	id, found, err := b.FindFolder(context.Background(), "Acme", "root-1")
	require.NoError(t, err)

	assert.True(t, found)
	assert.Equal(t, "f-1", id)
	require.Len(t, fake.queries, 1)
	assert.Equal(t,
		"name = 'Acme' and mimeType = 'application/vnd.google-apps.folder' and trashed = false and 'root-1' in parents",
		fake.queries[0])
}

func TestFindFolder_NotFound(t *testing.T) {
	b := newTestBackend(t, &fakeDrive{})

	_, found, err := b.FindFolder(context.Background(), "Acme", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindFolder_EscapesQuotes(t *testing.T) {
	fake := &fakeDrive{}
	b := newTestBackend(t, fake)

	_, _, err := b.FindFolder(context.Background(), "O'Brien & Co", "")
	require.NoError(t, err)
	assert.Contains(t, fake.queries[0], `name = 'O\'Brien & Co'`)
	assert.NotContains(t, fake.queries[0], "in parents")
}

func TestCreateFolder(t *testing.T) {
	fake := &fakeDrive{}
	b := newTestBackend(t, fake)

	id, err := b.CreateFolder(context.Background(), "2026", "parent-1")
	require.NoError(t, err)

	assert.Equal(t, "new-folder", id)
	require.Len(t, fake.created, 1)
	assert.Equal(t, "2026", fake.created[0]["name"])
	assert.Equal(t, folderMimeType, fake.created[0]["mimeType"])
	assert.Equal(t, []any{"parent-1"}, fake.created[0]["parents"])
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `a\\b\'c`, escapeQuery(`a\b'c`))
}

func TestUpload(t *testing.T) {
	content := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0x0d, 0x0a, 0xff, 0xfe, '-', '-'}
	fake := &fakeDrive{uploadResult: map[string]any{
		"id":          "file-1",
		"name":        "factura_20250115_093005.pdf",
		"size":        "11",
		"webViewLink": "https://drive.google.com/file/d/file-1/view",
	}}
	b := newTestBackend(t, fake)

	up, err := b.Upload(context.Background(), storage.File{
		Name:     "factura_20250115_093005.pdf",
		FolderID: "day-folder",
		MimeType: "application/pdf",
		Content:  content,
	})
	require.NoError(t, err)

	assert.Equal(t, "file-1", up.ID)
	assert.Equal(t, "factura_20250115_093005.pdf", up.Name)
	assert.Equal(t, int64(11), up.Size)
	assert.Equal(t, "https://drive.google.com/file/d/file-1/view", up.SharedLink)

	require.Len(t, fake.uploads, 1)
	got := fake.uploads[0]
	assert.True(t, strings.HasSuffix(got.path, "/upload/drive/v3/files"), got.path)
	assert.Equal(t, "factura_20250115_093005.pdf", got.meta["name"])
	assert.Equal(t, []any{"day-folder"}, got.meta["parents"])
	assert.Equal(t, "application/pdf", got.contentType)
	assert.Equal(t, content, got.content)
}

func TestUpload_FallsBackToContentLink(t *testing.T) {
	fake := &fakeDrive{uploadResult: map[string]any{
		"id":             "file-2",
		"name":           "nota.txt",
		"webContentLink": "https://drive.google.com/uc?id=file-2&export=download",
	}}
	b := newTestBackend(t, fake)

	up, err := b.Upload(context.Background(), storage.File{
		Name:     "nota.txt",
		MimeType: "text/plain",
		Content:  []byte("hola"),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://drive.google.com/uc?id=file-2&export=download", up.SharedLink)
	assert.Zero(t, up.Size)
	require.Len(t, fake.uploads, 1)
	assert.NotContains(t, fake.uploads[0].meta, "parents")
	assert.Equal(t, []byte("hola"), fake.uploads[0].content)
}

func TestUpload_MissingFolder(t *testing.T) {
	fake := &fakeDrive{uploadStatus: http.StatusNotFound}
	b := newTestBackend(t, fake)

	_, err := b.Upload(context.Background(), storage.File{
		Name:     "a.pdf",
		FolderID: "day-folder",
		MimeType: "application/pdf",
		Content:  []byte("%PDF"),
	})
	assert.ErrorIs(t, err, storage.ErrFolderNotFound)
}
