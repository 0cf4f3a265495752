package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // webp decode support for image.Decode
	_ "image/png"
)

// Derivative geometry: display is capped to 1920×1080 preserving aspect
// ratio with no upscaling; thumbnails are a fixed 300×200 center crop.
const (
	DisplayMaxWidth  = 1920
	DisplayMaxHeight = 1080
	ThumbWidth       = 300
	ThumbHeight      = 200
	JPEGQuality      = 82
)

// DecodeImageFile decodes a staged upload using whatever decoders are
// registered (jpeg, png, webp). Returns the decoded image or an error
// the caller surfaces as a transcode failure.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// EncodeDisplay produces the display derivative, re-encoded as JPEG.
func EncodeDisplay(img image.Image) (*bytes.Buffer, error) {
	b := img.Bounds()
	if b.Dx() > DisplayMaxWidth || b.Dy() > DisplayMaxHeight {
		img = imaging.Fit(img, DisplayMaxWidth, DisplayMaxHeight, imaging.Lanczos)
	}
	return encodeJPEG(img)
}

// EncodeThumbnail produces the fixed-size cropped-to-fill thumbnail.
func EncodeThumbnail(img image.Image) (*bytes.Buffer, error) {
	thumb := imaging.Fill(img, ThumbWidth, ThumbHeight, imaging.Center, imaging.Lanczos)
	return encodeJPEG(thumb)
}

func encodeJPEG(img image.Image) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf, nil
}
