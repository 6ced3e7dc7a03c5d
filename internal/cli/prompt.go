package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// imagePatterns are the extensions offered by the native picker.
var imagePatterns = []string{
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.tif", "*.tiff", "*.bmp",
}

// pickFile is swapped out in tests.
var pickFile = func() (string, error) {
	return zenity.SelectFile(
		zenity.Title("Select a photo"),
		zenity.FileFilters{
			{Name: "Images", Patterns: imagePatterns},
		},
	)
}

// PromptForImage asks for the source photo. With usePicker it opens the
// native file dialog first and falls back to reading a path from in when no
// dialog is available. A cancelled dialog returns ErrNoInput.
func PromptForImage(in io.Reader, out io.Writer, usePicker bool) (string, error) {
	if usePicker {
		path, err := pickFile()
		switch {
		case err == nil:
			log.Info().Str("path", path).Msg("File picked via native dialog")
			return path, nil
		case errors.Is(err, zenity.ErrCanceled):
			return "", ErrNoInput
		default:
			log.Debug().Err(err).Msg("Native file picker unavailable, reading from stdin")
		}
	}

	fmt.Fprint(out, "Photo path: ")
	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("read input path: %w", err)
	}

	input = strings.Trim(strings.TrimSpace(input), `"'`)
	if input == "" {
		return "", ErrNoInput
	}
	return input, nil
}
