package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/processing"
)

const sniffLen = 512

var (
	errEmptyFile   = errors.New("empty file")
	errTooLarge    = errors.New("file exceeds size limit")
	errTypeDenied  = errors.New("file type not allowed")
	errMissingPart = errors.New("missing file part")
)

type uploadResponse struct {
	FileID string `json:"fileId"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Format string `json:"format"`
	Status string `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer part.Close()

	tmp, err := s.persistTemp(part)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.respondError(w, status, err.Error())
		return
	}
	defer tmp.cleanup()

	if !s.allowedType(tmp.detectedType) {
		s.respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("%s: %s", errTypeDenied, tmp.detectedType))
		return
	}

	if model.DetectFormat(tmp.filename, tmp.contentType) == model.FormatUnknown {
		s.respondError(w, http.StatusUnsupportedMediaType, "unrecognised sales file format")
		return
	}

	objectKey := path.Join("uploads", uuid.NewString(), tmp.filename)
	loc, err := s.objects.UploadRaw(ctx, objectKey, tmp.f, tmp.size, tmp.contentType)
	if err != nil {
		s.logger.Error("upload to storage failed", "key", objectKey, "error", err)
		s.respondError(w, http.StatusBadGateway, "failed to store file")
		return
	}
	now := s.now().UTC()
	file, err := model.NewFileDescriptor(model.FileParams{
		Name:        tmp.filename,
		Size:        tmp.size,
		ContentType: tmp.contentType,
		Bucket:      loc.Bucket,
		Key:         loc.Key,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := file.Annotate("uploader", "api"); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := file.Annotate("detectedType", tmp.detectedType); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.jobs.EnqueueExtract(ctx, file); err != nil {
		s.logger.Error("enqueue extract failed", "file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, processing.ErrQueueFull) || errors.Is(err, processing.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(w, status, "failed to queue extraction")
		return
	}
	s.logger.Info("upload queued", "file_id", file.ID(), "bucket", loc.Bucket, "key", loc.Key, "size", tmp.size)
	s.respondJSON(w, http.StatusAccepted, uploadResponse{
		FileID: file.ID(),
		Bucket: loc.Bucket,
		Key:    loc.Key,
		Format: string(file.Format()),
		Status: "queued",
	})
}

type tempUpload struct {
	f            *os.File
	size         int64
	detectedType string
	contentType  string
	filename     string
}

func (t *tempUpload) cleanup() {
	t.f.Close()
	os.Remove(t.f.Name())
}

// persistTemp spools the part to disk, enforcing the size limit and keeping
// the first bytes for content sniffing.
func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp("", "salesdrop-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	fail := func(err error) (*tempUpload, error) {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}

	var sniff []byte
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxFileSize {
				return fail(fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxFileSize))
			}
			if len(sniff) < sniffLen {
				sniff = append(sniff, buf[:min(n, sniffLen-len(sniff))]...)
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return fail(fmt.Errorf("write temp file: %w", err))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			var maxErr *http.MaxBytesError
			if errors.As(readErr, &maxErr) {
				return fail(fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxFileSize))
			}
			return fail(fmt.Errorf("read file: %w", readErr))
		}
	}
	if written == 0 {
		return fail(errEmptyFile)
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("rewind temp file: %w", err))
	}

	detected := http.DetectContentType(sniff)
	contentType := part.Header.Get("Content-Type")
	if base := baseType(contentType); base == "" || base == "application/octet-stream" {
		contentType = detected
	}
	filename := filepath.Base(part.FileName())
	if filename == "." || filename == string(filepath.Separator) || strings.TrimSpace(filename) == "" {
		filename = "upload"
	}
	return &tempUpload{
		f:            tmpFile,
		size:         written,
		detectedType: detected,
		contentType:  contentType,
		filename:     filename,
	}, nil
}

// allowedType compares media types without parameters.
func (s *Server) allowedType(contentType string) bool {
	base := baseType(contentType)
	for _, allowed := range s.cfg.AllowedTypes {
		if baseType(allowed) == base {
			return true
		}
	}
	return false
}

func baseType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingPart
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart: %w", err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
