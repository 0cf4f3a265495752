package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Storage roots for durable derivatives. Keys handed to a Storage are
// always relative paths under these roots so the presentation layer can
// join them onto a public base URL.
const (
	DisplayDir   = "display"
	ThumbnailDir = "thumbnails"
	TmpDir       = "tmp"
)

// Storage is the durable artifact store behind the media pipeline.
// Implemented by DiskStorage (default) and R2Storage.
type Storage interface {
	Save(key string, r io.Reader, contentType string) error
	Delete(key string) error
}

// DiskStorage writes artifacts under a local root (served via /uploads)
type DiskStorage struct {
	Root string
}

func NewDiskStorage(root string) *DiskStorage {
	return &DiskStorage{Root: root}
}

func (d *DiskStorage) Save(key string, r io.Reader, _ string) error {
	destPath := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, r)
	return err
}

func (d *DiskStorage) Delete(key string) error {
	err := os.Remove(filepath.Join(d.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// EnsureUploadDirs creates the local upload tree if it doesn't exist
func EnsureUploadDirs(root string) error {
	for _, sub := range []string{DisplayDir, ThumbnailDir, TmpDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), os.ModePerm); err != nil {
			return err
		}
	}
	return nil
}

// RandomBaseName derives a collision-resistant stored base name from the
// original upload name: slugged base + timestamp + 128-bit random suffix.
func RandomBaseName(originalFilename string) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	s := slug.Make(base)
	if s == "" {
		s = "upload"
	}
	if len(s) > 40 {
		s = s[:40]
	}
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s_%d_%s", s, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// SaveUpload persists a multipart upload to destPath (transient staging)
func SaveUpload(fileHeader *multipart.FileHeader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}
