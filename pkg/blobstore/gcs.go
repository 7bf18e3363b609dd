package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

func (s *Store) putGCS(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	obj := s.bucket.Object(path)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("blobstore: gcs upload %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("blobstore: gcs upload %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.cfg.BucketName, path), nil
}

// getGCS is _download_from_gcs: it tries the requested object first,
// then a retro-compat alternate — a users/{uid}/covers/x address also
// tries the flat covers/x location a pre-per-user-isolation upload
// would have used (spec.md §6: "a download for users/{uid}/covers/X
// must also try covers/X").
func (s *Store) getGCS(ctx context.Context, address string) ([]byte, error) {
	blobPath := objectPathFromGCSAddress(s.cfg.BucketName, address)
	candidates := []string{blobPath}
	if strings.HasPrefix(blobPath, "users/") && strings.Contains(blobPath, "/covers/") {
		filename := blobPath[strings.LastIndex(blobPath, "/covers/")+len("/covers/"):]
		candidates = append(candidates, "covers/"+filename)
	}

	var lastErr error
	for _, candidate := range candidates {
		reader, err := s.bucket.Object(candidate).NewReader(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	if lastErr == nil {
		lastErr = storage.ErrObjectNotExist
	}
	return nil, fmt.Errorf("blobstore: gcs object not found %s: %w", address, lastErr)
}

func (s *Store) deleteGCS(ctx context.Context, address string) (bool, error) {
	blobPath := objectPathFromGCSAddress(s.cfg.BucketName, address)
	err := s.bucket.Object(blobPath).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobstore: gcs delete %s: %w", address, err)
	}
	return true, nil
}

func (s *Store) signGCS(ctx context.Context, address string) (string, error) {
	blobPath := objectPathFromGCSAddress(s.cfg.BucketName, address)

	var privateKey []byte
	if s.cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(s.cfg.PrivateKeyPath)
		if err != nil {
			return "", fmt.Errorf("blobstore: read signing key: %w", err)
		}
		privateKey = key
	}

	url, err := storage.SignedURL(s.cfg.BucketName, blobPath, &storage.SignedURLOptions{
		GoogleAccessID: s.cfg.GoogleAccessID,
		PrivateKey:     privateKey,
		Method:         "GET",
		Expires:        time.Now().Add(s.cfg.SignedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: sign %s: %w", address, err)
	}
	return url, nil
}
