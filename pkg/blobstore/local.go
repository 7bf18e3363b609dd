package blobstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// putLocal is _upload_to_local: books/ lands under
// {base}/books/..., covers/ lands under {base}/sessions/... (the
// Python service deliberately nests covers under a "sessions"
// directory, not "covers" — a quirk preserved verbatim since other
// code, including getLocal's own candidate search below, depends on
// it), anything else under {base} itself.
func (s *Store) putLocal(path string, data []byte) (string, error) {
	var dir, relative string
	switch {
	case strings.HasPrefix(path, "books/"):
		dir = filepath.Join(s.cfg.LocalBaseDir, "books")
		relative = strings.TrimPrefix(path, "books/")
	case strings.HasPrefix(path, "covers/"):
		dir = filepath.Join(s.cfg.LocalBaseDir, "sessions")
		relative = strings.TrimPrefix(path, "covers/")
	default:
		dir = s.cfg.LocalBaseDir
		relative = path
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir %s: %w", dir, err)
	}
	localPath := filepath.Join(dir, relative)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write %s: %w", localPath, err)
	}
	return localPath, nil
}

// getLocal is _download_from_local: an absolute path is read
// directly; a relative one is searched in the same directories
// putLocal writes to, trying "sessions/" before "covers/" for
// cover-shaped filenames (matching the Python fallback order exactly).
func (s *Store) getLocal(localPath string) ([]byte, error) {
	if filepath.IsAbs(localPath) {
		return os.ReadFile(localPath)
	}

	name := filepath.Base(localPath)
	ext := strings.ToLower(filepath.Ext(name))

	var candidates []string
	switch {
	case strings.Contains(localPath, "books") || ext == ".pdf":
		candidates = []string{filepath.Join(s.cfg.LocalBaseDir, "books", name)}
	case strings.Contains(localPath, "covers") || ext == ".png" || ext == ".jpg" || ext == ".jpeg":
		candidates = []string{
			filepath.Join(s.cfg.LocalBaseDir, "sessions", name),
			filepath.Join(s.cfg.LocalBaseDir, "covers", name),
		}
	default:
		candidates = []string{filepath.Join(s.cfg.LocalBaseDir, name)}
	}

	var lastErr error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("blobstore: local file not found %s: %w", localPath, lastErr)
}

func (s *Store) deleteLocal(localPath string) (bool, error) {
	path := localPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.LocalBaseDir, path)
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobstore: local delete %s: %w", path, err)
	}
	return true, nil
}
