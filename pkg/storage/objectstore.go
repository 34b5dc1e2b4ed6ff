package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Bucket names mirror the asset categories the platform serves.
const (
	BucketContentFiles   = "content-files"
	BucketQuizImages     = "quiz-images"
	BucketTextbookCovers = "textbook-covers"
	BucketPastPapers     = "past-papers"
	BucketMarkingSchemes = "marking-schemes"
	BucketSyllabusFiles  = "syllabus-files"
	BucketAvatars        = "avatars"
)

var knownBuckets = map[string]struct{}{
	BucketContentFiles:   {},
	BucketQuizImages:     {},
	BucketTextbookCovers: {},
	BucketPastPapers:     {},
	BucketMarkingSchemes: {},
	BucketSyllabusFiles:  {},
	BucketAvatars:        {},
}

// Object describes a stored file.
type Object struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// ObjectStore persists uploaded files on disk, one directory per bucket.
type ObjectStore struct {
	baseDir string
}

// NewObjectStore ensures the bucket directories exist and returns a handle.
func NewObjectStore(baseDir string) (*ObjectStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	for bucket := range knownBuckets {
		if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket directory %s: %w", bucket, err)
		}
	}
	return &ObjectStore{baseDir: baseDir}, nil
}

// Save streams the reader into the bucket under the given relative path.
func (s *ObjectStore) Save(bucket, relPath string, r io.Reader) (*Object, error) {
	full, err := s.resolve(bucket, relPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create object file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	size, err := io.Copy(file, r)
	if err != nil {
		return nil, fmt.Errorf("write object stream: %w", err)
	}
	return &Object{Bucket: bucket, Path: relPath, Size: size}, nil
}

// Open returns a read-only handle for a stored object.
func (s *ObjectStore) Open(bucket, relPath string) (*os.File, error) {
	full, err := s.resolve(bucket, relPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present. Missing objects are not errors.
func (s *ObjectStore) Delete(bucket, relPath string) error {
	full, err := s.resolve(bucket, relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// CleanupPrefixOlderThan removes objects whose bucket-relative path starts
// with prefix (slash-separated, e.g. "video/temp-") and whose mtime is older
// than the TTL. Used to sweep temp-owner uploads that were never attached to
// a content record.
func (s *ObjectStore) CleanupPrefixOlderThan(bucket, prefix string, ttl time.Duration) ([]string, error) {
	if _, ok := knownBuckets[bucket]; !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	cutoff := time.Now().Add(-ttl)
	root := filepath.Join(s.baseDir, bucket)
	deleted := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup bucket %s: %w", bucket, err)
	}
	return deleted, nil
}

// FullPath exposes the underlying absolute path (useful for debugging).
func (s *ObjectStore) FullPath(bucket, relPath string) string {
	full, err := s.resolve(bucket, relPath)
	if err != nil {
		return ""
	}
	return full
}

func (s *ObjectStore) resolve(bucket, relPath string) (string, error) {
	if _, ok := knownBuckets[bucket]; !ok {
		return "", fmt.Errorf("unknown bucket %q", bucket)
	}
	cleaned := filepath.Clean("/" + relPath)
	if cleaned == "/" {
		return "", fmt.Errorf("empty object path")
	}
	return filepath.Join(s.baseDir, bucket, cleaned), nil
}
