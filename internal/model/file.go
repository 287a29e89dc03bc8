package model

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format is the tabular source format of an uploaded file.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatPDF     Format = "pdf"
	FormatUnknown Format = "unknown"
)

const fileEntity = "file descriptor"

// FileParams carries the fields required to describe a stored file.
type FileParams struct {
	Name        string
	Size        int64
	ContentType string
	Bucket      string
	Key         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileDescriptor identifies an uploaded file in object storage. It is
// immutable apart from its annotations.
type FileDescriptor struct {
	id          string
	name        string
	size        int64
	contentType string
	location    Location
	createdAt   time.Time
	updatedAt   time.Time
	annotations map[string]string
}

// FileDocument is the serialized form of a FileDescriptor. It travels inside
// queue payloads.
type FileDocument struct {
	ID          string            `json:"id"`
	Name        string            `json:"filename"`
	Size        int64             `json:"size"`
	ContentType string            `json:"mimeType"`
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	Annotations map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewFileDescriptor validates every required field before returning.
func NewFileDescriptor(p FileParams) (*FileDescriptor, error) {
	return newFileDescriptor(uuid.NewString(), p)
}

// FileFromDocument restores a descriptor, keeping its id and annotations.
func FileFromDocument(doc FileDocument) (*FileDescriptor, error) {
	if _, err := uuid.Parse(doc.ID); err != nil {
		return nil, invalid(fileEntity, "id", "must be a uuid")
	}
	f, err := newFileDescriptor(doc.ID, FileParams{
		Name:        doc.Name,
		Size:        doc.Size,
		ContentType: doc.ContentType,
		Bucket:      doc.Bucket,
		Key:         doc.Key,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	for k, v := range doc.Annotations {
		if err := f.Annotate(k, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func newFileDescriptor(id string, p FileParams) (*FileDescriptor, error) {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return nil, invalid(fileEntity, "filename", "must not be empty")
	case p.Size < 0:
		return nil, invalid(fileEntity, "size", "must be non-negative")
	case strings.TrimSpace(p.ContentType) == "":
		return nil, invalid(fileEntity, "mimeType", "must not be empty")
	case strings.TrimSpace(p.Bucket) == "":
		return nil, invalid(fileEntity, "bucket", "must not be empty")
	case strings.TrimSpace(p.Key) == "":
		return nil, invalid(fileEntity, "key", "must not be empty")
	case p.CreatedAt.IsZero():
		return nil, invalid(fileEntity, "createdAt", "is required")
	case p.UpdatedAt.IsZero():
		return nil, invalid(fileEntity, "updatedAt", "is required")
	}
	return &FileDescriptor{
		id:          id,
		name:        p.Name,
		size:        p.Size,
		contentType: p.ContentType,
		location:    Location{Bucket: p.Bucket, Key: p.Key},
		createdAt:   p.CreatedAt,
		updatedAt:   p.UpdatedAt,
		annotations: make(map[string]string),
	}, nil
}

// Annotate adds or replaces an annotation.
func (f *FileDescriptor) Annotate(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return invalid(fileEntity, "metadata", "annotation key must not be empty")
	}
	f.annotations[key] = value
	return nil
}

// Annotation returns the value stored under key.
func (f *FileDescriptor) Annotation(key string) (string, bool) {
	v, ok := f.annotations[key]
	return v, ok
}

func (f *FileDescriptor) ID() string { return f.id }
func (f *FileDescriptor) Name() string { return f.name }
func (f *FileDescriptor) Size() int64 { return f.size }
func (f *FileDescriptor) ContentType() string { return f.contentType }
func (f *FileDescriptor) Location() Location { return f.location }

// Format guesses the tabular format from the file extension, falling back to
// the content type.
func (f *FileDescriptor) Format() Format {
	return DetectFormat(f.name, f.contentType)
}

// DetectFormat applies the Format rules to a bare name and content type.
func DetectFormat(name, contentType string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".pdf":
		return FormatPDF
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/csv"), strings.HasPrefix(ct, "text/plain"), strings.HasPrefix(ct, "text/tab-separated-values"):
		return FormatCSV
	case strings.Contains(ct, "spreadsheetml"):
		return FormatXLSX
	case strings.HasPrefix(ct, "application/pdf"):
		return FormatPDF
	}
	return FormatUnknown
}

// Serialize returns a detached copy suitable for JSON encoding.
func (f *FileDescriptor) Serialize() FileDocument {
	annotations := make(map[string]string, len(f.annotations))
	for k, v := range f.annotations {
		annotations[k] = v
	}
	return FileDocument{
		ID:          f.id,
		Name:        f.name,
		Size:        f.size,
		ContentType: f.contentType,
		Bucket:      f.location.Bucket,
		Key:         f.location.Key,
		Annotations: annotations,
		CreatedAt:   f.createdAt,
		UpdatedAt:   f.updatedAt,
	}
}
