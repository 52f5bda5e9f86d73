package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/utafrali/catalogimporter/internal/domain"
	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/httpclient"
)

// ErrImageNotFound is returned when a picture reference points nowhere.
// The importer skips such references without recording a message.
var ErrImageNotFound = errors.New("image not found")

// ErrImageTooLarge is returned when a picture exceeds domain.MaxPictureSize.
var ErrImageTooLarge = errors.New("image too large")

// ErrOutsideSourceDir is returned for local references that are absolute or
// climb out of the loader's base directory.
var ErrOutsideSourceDir = errors.New("path outside picture source directory")

// Fetcher performs HTTP GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Loader reads picture bytes from the local file system or over HTTP.
type Loader struct {
	baseDir string
	fetcher Fetcher
	maxSize int64
}

// NewLoader creates a loader resolving relative paths against baseDir, the
// current directory when empty. A nil fetcher disables remote references.
func NewLoader(baseDir string, fetcher Fetcher) *Loader {
	if baseDir == "" {
		baseDir = "."
	}
	return &Loader{baseDir: baseDir, fetcher: fetcher, maxSize: domain.MaxPictureSize}
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load returns the bytes referenced by ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrImageNotFound
	}
	if isRemote(ref) {
		return l.fetch(ctx, ref)
	}
	return l.readFile(ref)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if l.fetcher == nil {
		return nil, fmt.Errorf("download %s: remote pictures are disabled", url)
	}

	resp, err := l.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := httpclient.ParseResponseError(resp, "picture host")
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	return l.readAll(resp.Body, url)
}

func (l *Loader) readFile(ref string) ([]byte, error) {
	path := filepath.Clean(filepath.FromSlash(ref))
	if !filepath.IsLocal(path) {
		return nil, fmt.Errorf("%s: %w", ref, ErrOutsideSourceDir)
	}

	// OpenInRoot also refuses symlinks that lead out of baseDir.
	f, err := os.OpenInRoot(l.baseDir, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", ref, err)
	}
	if info.IsDir() {
		return nil, ErrImageNotFound
	}
	return l.readAll(f, ref)
}

func (l *Loader) readAll(r io.Reader, ref string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("read %s: %w", ref, ErrImageTooLarge)
	}
	if len(data) == 0 {
		return nil, ErrImageNotFound
	}
	return data, nil
}
