package services

import (
	"context"
	"image"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-report-system/utils"
)

func setupMedia(t *testing.T) (*MediaService, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, utils.EnsureUploadDirs(root))
	return NewMediaService(utils.NewDiskStorage(root), filepath.Join(root, utils.TmpDir)), root
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestProcessBatchAccepted(t *testing.T) {
	m, root := setupMedia(t)

	files := []*multipart.FileHeader{
		makeUpload(t, "big scene.jpg", "image/jpeg", jpegBytes(t, 2500, 1500)),
		makeUpload(t, "small.png", "image/png", pngBytes(t, 640, 480)),
	}

	photos, err := m.ProcessBatch(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, photos, 2)

	// one display per thumbnail per photo record, nothing transient left
	assert.Len(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)), 2)
	assert.Len(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)), 2)
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.TmpDir)))

	for _, p := range photos {
		assert.False(t, filepath.IsAbs(p.StoragePath), "paths must be storage-relative")
		assert.True(t, strings.HasPrefix(p.StoragePath, utils.DisplayDir+"/"))
		assert.True(t, strings.HasPrefix(p.ThumbnailPath, utils.ThumbnailDir+"/thumb_"))
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.OriginalFilename)

		thumb := decodeFile(t, filepath.Join(root, filepath.FromSlash(p.ThumbnailPath)))
		assert.Equal(t, utils.ThumbWidth, thumb.Bounds().Dx())
		assert.Equal(t, utils.ThumbHeight, thumb.Bounds().Dy())

		display := decodeFile(t, filepath.Join(root, filepath.FromSlash(p.StoragePath)))
		assert.LessOrEqual(t, display.Bounds().Dx(), utils.DisplayMaxWidth)
		assert.LessOrEqual(t, display.Bounds().Dy(), utils.DisplayMaxHeight)
	}

	// the oversized source was scaled down, the small one untouched
	bigDisplay := decodeFile(t, filepath.Join(root, filepath.FromSlash(photos[0].StoragePath)))
	assert.Equal(t, 1800, bigDisplay.Bounds().Dx()) // 2500×1500 fit into 1920×1080
	smallDisplay := decodeFile(t, filepath.Join(root, filepath.FromSlash(photos[1].StoragePath)))
	assert.Equal(t, 640, smallDisplay.Bounds().Dx()) // no upscaling
}

func TestProcessBatchTranscodeFailureRollsBack(t *testing.T) {
	m, root := setupMedia(t)

	files := []*multipart.FileHeader{
		makeUpload(t, "good.jpg", "image/jpeg", jpegBytes(t, 800, 600)),
		makeUpload(t, "broken.jpg", "image/jpeg", []byte("not an image at all")),
	}

	_, err := m.ProcessBatch(context.Background(), files)
	require.Error(t, err)

	var te *TranscodeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "broken.jpg", te.Filename)

	// zero durable artifacts from the batch remain
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.TmpDir)))
}

// cancelOnSaveStorage cancels the batch context the moment the first
// durable write is attempted, and refuses all writes once cancelled.
type cancelOnSaveStorage struct {
	inner  utils.Storage
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (s *cancelOnSaveStorage) Save(key string, r io.Reader, contentType string) error {
	s.once.Do(s.cancel)
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.inner.Save(key, r, contentType)
}

func (s *cancelOnSaveStorage) Delete(key string) error { return s.inner.Delete(key) }

func TestProcessBatchCancelledBeforeStart(t *testing.T) {
	m, root := setupMedia(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.ProcessBatch(ctx, []*multipart.FileHeader{
		makeUpload(t, "one.jpg", "image/jpeg", jpegBytes(t, 400, 300)),
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.TmpDir)))
}

func TestProcessBatchCancelledMidBatchRollsBack(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, utils.EnsureUploadDirs(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := &cancelOnSaveStorage{
		inner:  utils.NewDiskStorage(root),
		ctx:    ctx,
		cancel: cancel,
	}
	m := NewMediaService(storage, filepath.Join(root, utils.TmpDir))

	files := []*multipart.FileHeader{
		makeUpload(t, "one.jpg", "image/jpeg", jpegBytes(t, 400, 300)),
		makeUpload(t, "two.jpg", "image/jpeg", jpegBytes(t, 400, 300)),
		makeUpload(t, "three.jpg", "image/jpeg", jpegBytes(t, 400, 300)),
	}

	_, err := m.ProcessBatch(ctx, files)
	require.Error(t, err)

	// the interrupted batch leaves no durable or transient artifacts
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.TmpDir)))
}

func TestProcessBatchValidationRejections(t *testing.T) {
	m, root := setupMedia(t)

	t.Run("no files", func(t *testing.T) {
		_, err := m.ProcessBatch(context.Background(), nil)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("too many files", func(t *testing.T) {
		var files []*multipart.FileHeader
		for i := 0; i < MaxFilesPerBatch+1; i++ {
			files = append(files, makeUpload(t, "a.jpg", "image/jpeg", jpegBytes(t, 10, 10)))
		}
		_, err := m.ProcessBatch(context.Background(), files)
		assert.ErrorIs(t, err, ErrTooManyFiles)
	})

	t.Run("oversize", func(t *testing.T) {
		fh := &multipart.FileHeader{
			Filename: "huge.jpg",
			Size:     MaxFileBytes + 1,
			Header:   textproto.MIMEHeader{"Content-Type": []string{"image/jpeg"}},
		}
		_, err := m.ProcessBatch(context.Background(), []*multipart.FileHeader{fh})
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("unsupported mime", func(t *testing.T) {
		fh := makeUpload(t, "notes.txt", "text/plain", []byte("hello"))
		_, err := m.ProcessBatch(context.Background(), []*multipart.FileHeader{fh})
		assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	})

	// validation rejections never touched storage
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)))
}

func TestCleanupPhotosRemovesDurables(t *testing.T) {
	m, root := setupMedia(t)

	photos, err := m.ProcessBatch(context.Background(), []*multipart.FileHeader{
		makeUpload(t, "one.jpg", "image/jpeg", jpegBytes(t, 400, 300)),
	})
	require.NoError(t, err)
	require.Len(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)), 1)

	m.CleanupPhotos(photos)

	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.DisplayDir)))
	assert.Empty(t, dirEntries(t, filepath.Join(root, utils.ThumbnailDir)))
}
