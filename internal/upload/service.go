package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/corpus-kb/corpus/internal/home"
	"github.com/corpus-kb/corpus/internal/pipeline"
	"github.com/corpus-kb/corpus/internal/store"
)

// Result describes a finished upload. Job is nil when the content was
// already known and no extraction was scheduled.
type Result struct {
	Resource  *store.Resource
	Job       *store.Job
	Duplicate bool
}

// Service stores uploaded documents under the home storage directory
// (sharded by content hash) and schedules their extraction.
type Service struct {
	store  *store.Store
	home   *home.Dir
	logger *slog.Logger
}

func NewService(s *store.Store, h *home.Dir, logger *slog.Logger) *Service {
	return &Service{store: s, home: h, logger: logger}
}

// Upload ingests one document. The content is hashed while it is
// written to a temporary file; identical content short-circuits to the
// existing resource.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	tmp, err := os.CreateTemp("", "corpus-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	digest := xxhash.New()
	size, err := io.Copy(io.MultiWriter(tmp, digest), r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if size == 0 {
		return nil, fmt.Errorf("empty upload %q", filename)
	}
	hash := fmt.Sprintf("%016x", digest.Sum64())

	if existing, err := s.store.GetResourceByHash(hash); err == nil {
		s.logger.Info("duplicate upload", "name", filename, "hash", hash, "resource", existing.ID)
		return &Result{Resource: existing, Duplicate: true}, nil
	} else if err != store.ErrNotFound {
		return nil, err
	}

	path := s.home.StoredFilePath(hash, ext)
	if err := os.MkdirAll(s.home.StoredFileDir(hash), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := copyFile(tmp, path); err != nil {
		return nil, err
	}

	pages := 0
	if ext == "pdf" {
		pages, err = api.PageCountFile(path)
		if err != nil {
			s.logger.Warn("failed to count pdf pages", "name", filename, "error", err)
			pages = 0
		}
	}

	resource := &store.Resource{
		Name:               strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		OriginalName:       filepath.Base(filename),
		Hash:               hash,
		Type:               ext,
		MimeType:           mime.TypeByExtension("." + ext),
		UploadDate:         time.Now(),
		FileSize:           size,
		Pages:              pages,
		Path:               path,
		ConfirmationStatus: store.ConfirmationPending,
	}
	if err := s.store.CreateResource(resource); err != nil {
		return nil, err
	}

	job, err := s.store.CreateJob(pipeline.TypeDocumentExtraction, store.PriorityHigh, map[string]any{
		"resourceId": resource.ID,
		"hash":       hash,
		"extension":  ext,
		"path":       path,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document uploaded",
		"resource", resource.ID, "name", resource.Name, "hash", hash, "pages", pages, "bytes", size)
	return &Result{Resource: resource, Job: job}, nil
}

// UploadFile ingests a document from disk.
func (s *Service) UploadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return s.Upload(ctx, filepath.Base(path), f)
}

func copyFile(tmp *os.File, dst string) error {
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind temp file: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, tmp); err != nil {
		return fmt.Errorf("failed to store %s: %w", dst, err)
	}
	return out.Close()
}
