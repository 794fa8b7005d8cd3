package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultFileName is the blob file name inside every slot directory.
	DefaultFileName = "config_v2.json"
	// DefaultLockTimeout bounds how long a write waits for the slot lock.
	DefaultLockTimeout = time.Second

	sharedDir         = "default"
	lockRetryInterval = 50 * time.Millisecond
)

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FileOption configures a FileGateway.
type FileOption func(*FileGateway)

// WithFileName overrides the blob file name.
func WithFileName(name string) FileOption {
	return func(g *FileGateway) {
		if name != "" {
			g.fileName = name
		}
	}
}

// WithLockTimeout overrides how long writes wait for the slot lock.
func WithLockTimeout(timeout time.Duration) FileOption {
	return func(g *FileGateway) {
		if timeout > 0 {
			g.lockTimeout = timeout
		}
	}
}

// FileGateway stores blobs as <root>/default/<name> and <root>/<tenant>/<name>.
// Writes hold a sibling .lock file and replace the blob through a rename.
type FileGateway struct {
	root        string
	fileName    string
	lockTimeout time.Duration
}

// NewFileGateway returns a gateway rooted at root.
func NewFileGateway(root string, opts ...FileOption) (*FileGateway, error) {
	if root == "" {
		return nil, fmt.Errorf("persist: file gateway root is required")
	}
	g := &FileGateway{
		root:        filepath.Clean(root),
		fileName:    DefaultFileName,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Root returns the directory the gateway writes under.
func (g *FileGateway) Root() string { return g.root }

// Path resolves the file backing loc.
func (g *FileGateway) Path(loc Location) (string, error) {
	if loc.Shared() {
		return filepath.Join(g.root, sharedDir, g.fileName), nil
	}
	id := loc.Tenant()
	if id == sharedDir || !tenantPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTenant, id)
	}
	return filepath.Join(g.root, id, g.fileName), nil
}

func (g *FileGateway) Exists(_ context.Context, loc Location) (bool, error) {
	path, err := g.Path(loc)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persist: stat %s: %w", loc, err)
	}
	return !info.IsDir(), nil
}

func (g *FileGateway) Read(_ context.Context, loc Location) ([]byte, error) {
	path, err := g.Path(loc)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", loc, err)
	}
	return blob, nil
}

func (g *FileGateway) Write(ctx context.Context, loc Location, blob []byte) error {
	path, err := g.Path(loc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: create %s: %w", dir, err)
	}

	fileLock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, g.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %v", ErrLockTimeout, loc, g.lockTimeout)
		}
		return fmt.Errorf("persist: lock %s: %w", loc, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s after %v", ErrLockTimeout, loc, g.lockTimeout)
	}
	defer func() { _ = fileLock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+g.fileName+".*")
	if err != nil {
		return fmt.Errorf("persist: temp file for %s: %w", loc, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("persist: write %s: %w", loc, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close %s: %w", loc, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("persist: replace %s: %w", loc, err)
	}
	return nil
}
