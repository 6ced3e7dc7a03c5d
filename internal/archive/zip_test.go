package archive

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestEntryName(t *testing.T) {
	tests := []struct {
		naming       Naming
		index, total int
		want         string
	}{
		{NamingPlain, 1, 200, "1.png"},
		{NamingPlain, 200, 200, "200.png"},
		{NamingPadded, 1, 200, "variation-001.png"},
		{NamingPadded, 42, 5, "variation-042.png"},
		{NamingPadded, 7, 1000, "variation-0007.png"},
	}
	for _, tt := range tests {
		if got := EntryName(tt.naming, tt.index, tt.total); got != tt.want {
			t.Errorf("EntryName(%v, %d, %d) = %q, want %q", tt.naming, tt.index, tt.total, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	if n, err := ParseNaming("Padded"); err != nil || n != NamingPadded {
		t.Errorf("ParseNaming(Padded) = %v, %v", n, err)
	}
	if _, err := ParseNaming("numbered"); err == nil {
		t.Error("ParseNaming(numbered) should fail")
	}
	for _, s := range []string{"deflate", "zstd", "store"} {
		c, err := ParseCompression(s)
		if err != nil || c.String() != s {
			t.Errorf("ParseCompression(%q) = %v, %v", s, c, err)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("ParseCompression(brotli) should fail")
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	images := [][]byte{
		[]byte("first image payload"),
		bytes.Repeat([]byte("second "), 100),
		{0x89, 'P', 'N', 'G'},
	}

	for _, comp := range []Compression{CompressionDeflate, CompressionZstd, CompressionStore} {
		t.Run(comp.String(), func(t *testing.T) {
			var calls []int
			data, err := Bytes(images, Options{
				Naming:      NamingPadded,
				Compression: comp,
				ModTime:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
				Progress:    func(done, total int) { calls = append(calls, done) },
			})
			if err != nil {
				t.Fatalf("Write: %v", err)
			}

			zr, err := NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			if len(zr.File) != len(images) {
				t.Fatalf("archive has %d entries, want %d", len(zr.File), len(images))
			}
			for i, f := range zr.File {
				if want := EntryName(NamingPadded, i+1, len(images)); f.Name != want {
					t.Errorf("entry %d name = %q, want %q", i, f.Name, want)
				}
				rc, err := f.Open()
				if err != nil {
					t.Fatalf("open %s: %v", f.Name, err)
				}
				got, err := io.ReadAll(rc)
				rc.Close()
				if err != nil {
					t.Fatalf("read %s: %v", f.Name, err)
				}
				if !bytes.Equal(got, images[i]) {
					t.Errorf("entry %s content mismatch", f.Name)
				}
			}
			if len(calls) != len(images) || calls[len(calls)-1] != len(images) {
				t.Errorf("progress calls = %v", calls)
			}
		})
	}
}

func TestWrite_Empty(t *testing.T) {
	data, err := Bytes(nil, Options{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	zr, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 0 {
		t.Errorf("empty batch produced %d entries", len(zr.File))
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		label, want string
	}{
		{"beach.jpg", "beach-jpg-variations.zip"},
		{"  ", "photo-variations.zip"},
		{"my photo/../x", "my-photo----x-variations.zip"},
	}
	for _, tt := range tests {
		if got := FileName(tt.label); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
