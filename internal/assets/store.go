package assets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"storyboard/internal/logging"
)

// ErrUnsupportedType is returned by Save for files whose extension is outside
// the allow-list (or missing entirely).
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrInvalidName is returned when a requested filename would escape the
// upload directory.
var ErrInvalidName = errors.New("invalid asset name")

// Accepted upload extensions. Matching is case-insensitive; stored filenames
// always carry the lowercased form.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// Store holds uploaded image files in a single directory under generated
// names. Files are only ever created and deleted whole; there are no updates.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates the upload directory if needed and returns a store rooted there.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "assets"),
	}, nil
}

// Dir returns the upload directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Allowed reports whether the original filename carries an accepted extension.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := allowedExtensions[ext]
	return ok
}

// Save streams the upload to disk under a fresh generated name and returns
// that name. The extension is taken from the original filename, lowercased.
// Files with missing or disallowed extensions are rejected with
// ErrUnsupportedType before anything touches disk.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, originalName)
	}

	filename := uuid.NewString() + ext
	target := filepath.Join(s.dir, filename)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write asset file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close asset file: %w", err)
	}
	return filename, nil
}

// Remove deletes a stored file best-effort. Failures are logged and swallowed;
// a missing file is not an error. Row deletes have already committed by the
// time this runs, so an orphaned file is the worst outcome.
func (s *Store) Remove(name string) {
	path, err := s.resolve(name)
	if err != nil {
		s.logger.Warn("refusing to remove asset", logging.String("filename", name), logging.Error(err))
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove asset file", logging.String("filename", name), logging.Error(err))
	}
}

// Path resolves a stored filename to its on-disk location, rejecting names
// that would escape the upload directory.
func (s *Store) Path(name string) (string, error) {
	return s.resolve(name)
}

// List returns the names of all files currently in the upload directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *Store) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
