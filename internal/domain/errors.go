package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// ConfigurationError reports missing or invalid Source credentials.
type ConfigurationError struct {
	Source Platform
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %q is misconfigured: %s", e.Source, e.Reason)
}

// ResolutionError reports that no Company could be determined for a sender.
type ResolutionError struct {
	SenderNumber string
	Err          error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no company found for sender %s: %v", e.SenderNumber, e.Err)
	}
	return fmt.Sprintf("no company found for sender %s", e.SenderNumber)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// DownloadError reports a failed fetch of a file from the originating platform.
type DownloadError struct {
	Platform   Platform
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s download failed with status %d", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("%s download failed: %v", e.Platform, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError reports a storage backend failure while resolving folders or uploading.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return "malformed payload: " + e.Reason
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// FailureReason names the error category of err, for replies, metrics and envelopes.
func FailureReason(err error) string {
	var (
		cfgErr  *ConfigurationError
		resErr  *ResolutionError
		dlErr   *DownloadError
		upErr   *UploadError
		platErr *UnsupportedPlatformError
		pldErr  *MalformedPayloadError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &resErr):
		return "resolution"
	case errors.As(err, &dlErr):
		return "download"
	case errors.As(err, &upErr):
		return "upload"
	case errors.As(err, &platErr):
		return "unsupported_platform"
	case errors.As(err, &pldErr):
		return "malformed_payload"
	}
	return "internal"
}
