// Package imageio is the image boundary of the variator: decoding uploaded
// photos, probing their EXIF metadata, validating encoded output and
// producing gallery thumbnails.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"

	// Registers WebP with image.Decode; imaging already pulls in BMP and TIFF.
	_ "golang.org/x/image/webp"
)

// Decode boundary errors.
var (
	ErrEmpty  = errors.New("imageio: image data is empty")
	ErrDecode = errors.New("imageio: failed to decode image")
	ErrNotPNG = errors.New("imageio: image data is not a valid PNG")
)

// Metadata is the best-effort EXIF summary of a source photo.
type Metadata struct {
	CameraMake  string
	CameraModel string
	DateTaken   time.Time
	HasDate     bool
}

// Source is a decoded, orientation-corrected source photo.
type Source struct {
	Image    image.Image
	Width    int
	Height   int
	Format   string
	Metadata Metadata
}

// Decode reads an encoded photo (JPEG, PNG, GIF, WebP, TIFF or BMP) and
// applies its EXIF orientation. Metadata is probed best-effort; a photo
// without EXIF still decodes.
func Decode(r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	src := &Source{
		Image:    img,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Format:   format,
		Metadata: probeMetadata(data),
	}

	log.Debug().
		Str("format", format).
		Int("width", src.Width).
		Int("height", src.Height).
		Str("camera", strings.TrimSpace(src.Metadata.CameraMake+" "+src.Metadata.CameraModel)).
		Msg("Source image decoded")

	return src, nil
}

// probeMetadata extracts camera and date fields. Any failure yields an
// empty Metadata.
func probeMetadata(data []byte) (m Metadata) {
	defer func() {
		// imagemeta can panic on truncated containers.
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("EXIF probe aborted")
			m = Metadata{}
		}
	}()

	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata")
		return Metadata{}
	}

	m.CameraMake = strings.TrimSpace(exif.Make)
	m.CameraModel = strings.TrimSpace(exif.Model)

	// Priority: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exif.DateTimeOriginal().IsZero():
		m.DateTaken = exif.DateTimeOriginal()
	case !exif.CreateDate().IsZero():
		m.DateTaken = exif.CreateDate()
	case !exif.ModifyDate().IsZero():
		m.DateTaken = exif.ModifyDate()
	}
	m.HasDate = !m.DateTaken.IsZero()
	return m
}
