package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ncruces/zenity"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{90 * time.Second, "1:30"},
		{3725 * time.Second, "1:02:05"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536 * 1024, "1.5 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[----------]   0%"},
		{50, "[#####-----]  50%"},
		{100, "[##########] 100%"},
		{150, "[##########] 100%"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.percent, 10); got != tt.want {
			t.Errorf("ProgressBar(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(file, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.jpg")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ValidateInputFile(file)
	if err != nil || got != file {
		t.Errorf("ValidateInputFile(file) = %q, %v", got, err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "nope.jpg"), "not found"},
		{"directory", dir, "is a directory"},
		{"empty", empty, "is empty"},
		{"blank", "  ", "no input image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateInputFile(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	got, err := ValidateOutputDirectory(dir)
	if err != nil || got != dir {
		t.Fatalf("ValidateOutputDirectory = %q, %v", got, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestPromptForImage(t *testing.T) {
	orig := pickFile
	t.Cleanup(func() { pickFile = orig })

	tests := []struct {
		name    string
		picker  func() (string, error)
		picked  bool
		input   string
		want    string
		wantErr error
	}{
		{"stdin", nil, false, "/tmp/photo.jpg\n", "/tmp/photo.jpg", nil},
		{"quoted stdin", nil, false, "'/tmp/my photo.jpg'\n", "/tmp/my photo.jpg", nil},
		{"stdin without newline", nil, false, "/tmp/a.png", "/tmp/a.png", nil},
		{"empty stdin", nil, false, "\n", "", ErrNoInput},
		{"picker", func() (string, error) { return "/pics/a.png", nil }, true, "", "/pics/a.png", nil},
		{"picker cancelled", func() (string, error) { return "", zenity.ErrCanceled }, true, "", "", ErrNoInput},
		{"picker unavailable", func() (string, error) { return "", errors.New("no display") }, true, "/tmp/b.png\n", "/tmp/b.png", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pickFile = tt.picker
			var out bytes.Buffer
			got, err := PromptForImage(strings.NewReader(tt.input), &out, tt.picked)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
		})
	}
}
