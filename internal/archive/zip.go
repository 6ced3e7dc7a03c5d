// Package archive bundles a generated batch into a single zip file.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// Naming selects how entries are named inside the archive.
type Naming int

const (
	// NamingPlain names entries 1.png, 2.png, ...
	NamingPlain Naming = iota
	// NamingPadded names entries variation-001.png, variation-002.png, ...
	NamingPadded
)

func (n Naming) String() string {
	if n == NamingPadded {
		return "padded"
	}
	return "plain"
}

// ParseNaming maps "plain" or "padded" to a Naming.
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return NamingPlain, nil
	case "padded":
		return NamingPadded, nil
	}
	return NamingPlain, fmt.Errorf("unknown archive naming %q (want plain or padded)", s)
}

// Compression selects the zip entry method.
type Compression int

const (
	// CompressionDeflate is standard deflate at level 6.
	CompressionDeflate Compression = iota
	// CompressionZstd uses Zstandard (zip method 93). Not every unzip tool
	// can read it.
	CompressionZstd
	// CompressionStore writes entries uncompressed. PNG payloads are already
	// compressed, so this is the fastest option.
	CompressionStore
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionStore:
		return "store"
	default:
		return "deflate"
	}
}

// ParseCompression maps "deflate", "zstd" or "store" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deflate":
		return CompressionDeflate, nil
	case "zstd":
		return CompressionZstd, nil
	case "store":
		return CompressionStore, nil
	}
	return CompressionDeflate, fmt.Errorf("unknown archive compression %q (want deflate, zstd or store)", s)
}

const deflateLevel = 6

// Options control Write.
type Options struct {
	Naming      Naming
	Compression Compression
	// ModTime stamps every entry; defaults to the current time.
	ModTime time.Time
	// Progress, when set, is called after each entry is written with the
	// 1-based count of entries done.
	Progress func(done, total int)
}

// EntryName returns the archive name of the index-th (1-based) image in a
// batch of total.
func EntryName(n Naming, index, total int) string {
	if n == NamingPadded {
		width := max(3, len(strconv.Itoa(total)))
		return fmt.Sprintf("variation-%0*d.png", width, index)
	}
	return fmt.Sprintf("%d.png", index)
}

// Write bundles images into a zip on w in the given order.
func Write(w io.Writer, images [][]byte, opts Options) error {
	zw := zip.NewWriter(w)
	method := zip.Deflate
	switch opts.Compression {
	case CompressionZstd:
		method = zstd.ZipMethodWinZip
		zw.RegisterCompressor(method, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedDefault)))
	case CompressionStore:
		method = zip.Store
	default:
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, deflateLevel)
		})
	}

	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	total := len(images)
	for i, data := range images {
		name := EntryName(opts.Naming, i+1, total)
		header := &zip.FileHeader{
			Name:   name,
			Method: method,
		}
		header.SetModTime(modTime)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("write zip entry %s: %w", name, err)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip writer: %w", err)
	}
	return nil
}

// Bytes is Write into memory.
func Bytes(images [][]byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, images, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewReader opens an archive produced by Write, including zstd entries.
func NewReader(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	return zr, nil
}

// FileName builds a download file name from a free-form label.
func FileName(label string) string {
	name := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.TrimSpace(label))
	name = strings.Trim(name, "-")
	if name == "" {
		name = "photo"
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return name + "-variations.zip"
}
