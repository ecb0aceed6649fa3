package domain

import "io"

const (
	DefaultMaxFileSize  = 50 << 20
	DefaultMaxBulkFiles = 10
)

// AllowedMimeTypes lists the upload formats the classification service can read.
var AllowedMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/tiff",
	"image/webp",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func IsAllowedMimeType(mimeType string) bool {
	for _, allowed := range AllowedMimeTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

type UploadInput struct {
	OwnerID      string
	OriginalName string
	MimeType     string
	Size         int64
	Tags         []string
	Body         io.Reader
}

// BulkUploadResult reports one file of a bulk upload; Error is set when it failed.
type BulkUploadResult struct {
	OriginalName string    `json:"originalName"`
	Document     *Document `json:"document,omitempty"`
	Error        string    `json:"error,omitempty"`
}
