package domain

import (
	"time"
)

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// Message is the immutable record of one inbound webhook event.
// The file block (Filename through DriveFolderPath) is either fully populated or fully blank.
type Message struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SourceID          uint      `gorm:"not null;index" json:"source_id"`
	Source            *Source   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID            *uint     `gorm:"index" json:"user_id"`
	User              *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CompanyID         *uint     `gorm:"index" json:"company_id"`
	Company           *Company  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PlatformMessageID string    `gorm:"type:varchar(255)" json:"message_id"`
	MessageText       string    `gorm:"type:text" json:"message_text"`
	SenderNumber      string    `gorm:"type:varchar(20);index" json:"sender_number"`
	Filename          string    `gorm:"type:varchar(255)" json:"filename"`
	FileType          FileType  `gorm:"type:varchar(20);index" json:"file_type"`
	FileSize          *int64    `json:"file_size"`
	ContentType       string    `gorm:"type:varchar(100)" json:"content_type"`
	DriveFileID       string    `gorm:"type:varchar(255)" json:"drive_file_id"`
	DriveSharedLink   string    `gorm:"type:varchar(500)" json:"drive_shared_link"`
	DriveFolderPath   string    `gorm:"type:varchar(500)" json:"drive_folder_path"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StoredFile is the file block of a Message. It can only be attached whole.
type StoredFile struct {
	Filename    string
	FileType    FileType
	Size        int64
	ContentType string
	FileID      string
	SharedLink  string
	FolderPath  string
}

// SetFile populates every file field at once.
func (m *Message) SetFile(f StoredFile) {
	size := f.Size
	m.Filename = f.Filename
	m.FileType = f.FileType
	m.FileSize = &size
	m.ContentType = f.ContentType
	m.DriveFileID = f.FileID
	m.DriveSharedLink = f.SharedLink
	m.DriveFolderPath = f.FolderPath
}

// ClearFile blanks every file field.
func (m *Message) ClearFile() {
	m.Filename = ""
	m.FileType = ""
	m.FileSize = nil
	m.ContentType = ""
	m.DriveFileID = ""
	m.DriveSharedLink = ""
	m.DriveFolderPath = ""
}

func (m *Message) HasFile() bool {
	return m.DriveFileID != ""
}

// MessageFilter narrows message listings. Zero values are ignored.
type MessageFilter struct {
	SenderNumber string
	CompanyID    uint
	SourceID     uint
	FileType     FileType
	WithFiles    bool
	From         *time.Time
	To           *time.Time
	Limit        int
}

type MessageSummary struct {
	TotalMessages int64            `json:"total_messages"`
	TotalFiles    int64            `json:"total_files"`
	FilesByType   map[string]int64 `json:"files_by_type"`
	FilesBySender map[string]int64 `json:"files_by_sender"`
}
