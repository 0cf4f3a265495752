package utils

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoMeta is whatever could be recovered from the raw bytes. Every
// field is optional; extraction failure is never fatal.
type PhotoMeta struct {
	CapturedAt  *time.Time
	Lat         *float64
	Lon         *float64
	DeviceMake  string
	DeviceModel string
}

// ExtractPhotoMeta reads EXIF from a staged upload. Files without EXIF
// (png, webp, stripped jpeg) yield an empty PhotoMeta.
func ExtractPhotoMeta(path string) PhotoMeta {
	var meta PhotoMeta

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return meta
	}

	if tm, err := x.DateTime(); err == nil {
		meta.CapturedAt = &tm
	}
	if lat, lon, err := x.LatLong(); err == nil {
		meta.Lat = &lat
		meta.Lon = &lon
	}
	if tag, err := x.Get(exif.Make); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.DeviceMake = v
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			meta.DeviceModel = v
		}
	}
	return meta
}
