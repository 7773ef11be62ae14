// Package export saves rendered codes to disk, copies them to the system
// clipboard and announces downloads to a webhook.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/openclaw/qrstudio/render"
)

// ErrClipboardUnsupported is returned when the platform has no clipboard
// utility. Callers log it and carry on.
var ErrClipboardUnsupported = errors.New("clipboard not supported on this platform")

// Clipboard access, swappable in tests.
var (
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
	writeClipboard       = clipboard.WriteAll
)

// Filename returns the download name for code, e.g. qrcode.png.
func Filename(code *render.Code) string {
	return "qrcode." + code.Format.Extension()
}

// Save writes code into dir under Filename and returns the written path.
func Save(dir string, code *render.Code) (string, error) {
	if code == nil {
		return "", errors.New("nothing to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, Filename(code))
	if err := os.WriteFile(path, code.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Copy places code on the clipboard: SVG as its markup, raster output as a
// data: URL, since the clipboard only carries text.
func Copy(code *render.Code) error {
	if code == nil {
		return errors.New("nothing to copy")
	}
	if clipboardUnsupported() {
		return ErrClipboardUnsupported
	}

	text := code.SVG
	if code.Format.IsRaster() {
		text = code.DataURL()
	}
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
