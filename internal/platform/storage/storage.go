// Package storage provides file storage for uploaded medical-record
// documents. It defines the FileStore interface and a local-disk
// implementation that keys files under per-patient directories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// MaxFileSize is the maximum allowed upload size in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// FileStore defines the contract for medical-record file backends.
type FileStore interface {
	// Save streams content to storage and returns the stored path.
	Save(ctx context.Context, patientID int64, fileName string, content io.Reader) (string, error)
	// Open returns a reader for a previously stored path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error
}

// DiskStore stores files on the local filesystem under a base directory.
type DiskStore struct {
	base string
}

func NewDiskStore(base string) *DiskStore {
	return &DiskStore{base: base}
}

func (s *DiskStore) patientDir(patientID int64) string {
	return filepath.Join(s.base, fmt.Sprintf("patient_%d", patientID))
}

func (s *DiskStore) Save(ctx context.Context, patientID int64, fileName string, content io.Reader) (string, error) {
	dir := s.patientDir(patientID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create storage directory: %w", err)
	}

	// Random prefix so repeated uploads of the same name never collide.
	ext := filepath.Ext(fileName)
	stored := uuid.New().String() + ext
	path := filepath.Join(dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > MaxFileSize {
		os.Remove(path)
		return "", ErrFileTooLarge
	}

	return path, nil
}

func (s *DiskStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := s.checkPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, path string) error {
	if err := s.checkPath(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// checkPath rejects paths that escape the base directory.
func (s *DiskStore) checkPath(path string) error {
	absBase, err := filepath.Abs(s.base)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes storage root", path)
	}
	return nil
}
