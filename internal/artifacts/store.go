package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"finlens/internal/logging"
	"finlens/internal/services"
)

// Store stages uploaded documents on local disk for the lifetime of a job.
// References are random tokens; a caller-supplied name never reaches the
// filesystem.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("artifact directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %q: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "artifacts"),
	}, nil
}

// Acquire writes content to a uniquely named file and returns its reference.
func (s *Store) Acquire(content []byte, declaredExt string) (string, error) {
	ext := normalizeExt(declaredExt)
	if ext == "" {
		return "", services.Wrap(services.ErrValidation, "artifacts", "acquire", "a file extension is required", nil)
	}
	if len(content) == 0 {
		return "", services.Wrap(services.ErrValidation, "artifacts", "acquire", "document is empty", nil)
	}

	ref := fmt.Sprintf("document_%s.%s", uuid.NewString(), ext)
	path := filepath.Join(s.dir, ref)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", fmt.Errorf("write artifact %q: %w", ref, err)
	}
	s.logger.Debug("artifact stored",
		logging.String("artifact_ref", ref),
		logging.Int("bytes", len(content)),
	)
	return ref, nil
}

// Path resolves an artifact reference to its on-disk location. References
// that would escape the artifact directory are rejected.
func (s *Store) Path(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("artifact reference is empty")
	}
	if ref != filepath.Base(ref) {
		return "", fmt.Errorf("artifact reference %q is not a bare name", ref)
	}
	return filepath.Join(s.dir, ref), nil
}

// Read returns the staged document bytes for a reference.
func (s *Store) Read(ref string) ([]byte, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "artifacts", "read", fmt.Sprintf("artifact %s", ref), nil)
		}
		return nil, fmt.Errorf("read artifact %q: %w", ref, err)
	}
	return data, nil
}

// Release deletes the staged document. Releasing an already-released or
// unknown reference is not an error; it is only logged.
func (s *Store) Release(ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("artifact already released", logging.String("artifact_ref", ref))
			return nil
		}
		return fmt.Errorf("release artifact %q: %w", ref, err)
	}
	s.logger.Debug("artifact released", logging.String("artifact_ref", ref))
	return nil
}

// Exists reports whether the reference is still staged on disk.
func (s *Store) Exists(ref string) bool {
	path, err := s.Path(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
