package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"incident-report-system/models"
	"incident-report-system/utils"
)

const (
	MaxFilesPerBatch = 5
	MaxFileBytes     = 10 * 1024 * 1024
)

// allowedMIME maps accepted upload types to the staging extension used
// for the transient raw file.
var allowedMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// MediaService validates, transcodes, and extracts metadata from
// uploaded images. A batch either yields one Photo per file or fails
// whole with every durable and transient artifact of the batch removed.
type MediaService struct {
	Storage utils.Storage
	TmpRoot string
}

func NewMediaService(storage utils.Storage, tmpRoot string) *MediaService {
	return &MediaService{Storage: storage, TmpRoot: tmpRoot}
}

// ProcessBatch runs the full ingest pipeline for up to MaxFilesPerBatch
// uploads. Validation happens for every file before anything is
// persisted; per-file transcoding then runs concurrently and the first
// failure aborts the batch.
func (m *MediaService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]models.Photo, error) {
	if len(files) == 0 {
		return nil, validationf("at least one photo is required")
	}
	if len(files) > MaxFilesPerBatch {
		return nil, fmt.Errorf("%w: got %d files, max %d", ErrTooManyFiles, len(files), MaxFilesPerBatch)
	}
	for _, fh := range files {
		if fh.Size > MaxFileBytes {
			return nil, fmt.Errorf("%w: %q is %d bytes, max %d", ErrPayloadTooLarge, fh.Filename, fh.Size, MaxFileBytes)
		}
		if _, ok := allowedMIME[mimeOf(fh)]; !ok {
			return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedMediaType, fh.Filename, mimeOf(fh))
		}
	}

	photos := make([]models.Photo, len(files))

	var mu sync.Mutex
	var durable []string // storage keys written so far, for rollback

	g, ctx := errgroup.WithContext(ctx)
	for i, fh := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			photo, keys, err := m.processOne(fh)
			mu.Lock()
			durable = append(durable, keys...)
			mu.Unlock()
			if err != nil {
				return err
			}
			photos[i] = *photo
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.cleanupKeys(durable)
		return nil, err
	}
	return photos, nil
}

// processOne stages, inspects, and transcodes a single upload. The
// returned keys list every durable artifact written, even on failure,
// so the batch can roll back. The transient raw file never survives.
func (m *MediaService) processOne(fh *multipart.FileHeader) (*models.Photo, []string, error) {
	base := utils.RandomBaseName(fh.Filename)
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = allowedMIME[mimeOf(fh)]
	}

	tmpPath := filepath.Join(m.TmpRoot, base+ext)
	if err := utils.SaveUpload(fh, tmpPath); err != nil {
		return nil, nil, fmt.Errorf("%w: staging %q: %v", ErrStorageUnavailable, fh.Filename, err)
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[MEDIA] failed to remove transient file %s: %v", tmpPath, err)
		}
	}()

	// Extraction failure is non-fatal; empty metadata is fine.
	meta := utils.ExtractPhotoMeta(tmpPath)

	img, err := utils.DecodeImageFile(tmpPath)
	if err != nil {
		return nil, nil, &TranscodeError{Filename: fh.Filename, Cause: err}
	}

	displayBuf, err := utils.EncodeDisplay(img)
	if err != nil {
		return nil, nil, &TranscodeError{Filename: fh.Filename, Cause: err}
	}
	thumbBuf, err := utils.EncodeThumbnail(img)
	if err != nil {
		return nil, nil, &TranscodeError{Filename: fh.Filename, Cause: err}
	}

	storedName := base + ".jpg"
	displayKey := utils.DisplayDir + "/" + storedName
	thumbKey := utils.ThumbnailDir + "/thumb_" + storedName

	var keys []string
	if err := m.Storage.Save(displayKey, displayBuf, "image/jpeg"); err != nil {
		return nil, keys, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	keys = append(keys, displayKey)
	if err := m.Storage.Save(thumbKey, thumbBuf, "image/jpeg"); err != nil {
		return nil, keys, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	keys = append(keys, thumbKey)

	photo := &models.Photo{
		ID:               uuid.NewString(),
		StoredFilename:   storedName,
		OriginalFilename: fh.Filename,
		StoragePath:      displayKey,
		ThumbnailPath:    thumbKey,
		ByteSize:         fh.Size,
		MimeType:         mimeOf(fh),
		CapturedAt:       meta.CapturedAt,
		GPSLat:           meta.Lat,
		GPSLon:           meta.Lon,
		DeviceMake:       meta.DeviceMake,
		DeviceModel:      meta.DeviceModel,
	}
	return photo, keys, nil
}

// CleanupPhotos removes the durable artifacts behind already-built
// Photo records, used when the surrounding report creation fails after
// the media pipeline succeeded.
func (m *MediaService) CleanupPhotos(photos []models.Photo) {
	for _, p := range photos {
		m.cleanupKeys([]string{p.StoragePath, p.ThumbnailPath})
	}
}

func (m *MediaService) cleanupKeys(keys []string) {
	for _, key := range keys {
		if err := m.Storage.Delete(key); err != nil {
			log.Printf("[MEDIA] rollback failed to delete %s: %v", key, err)
		}
	}
}

func mimeOf(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
