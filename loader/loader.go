// Package loader extracts text, code, and image bytes from local files
// for loading into session context windows.
//
// Information Hiding:
// - Extension dispatch and per-format extraction
// - Encoding fallback for non-UTF-8 text
// - Size thresholds and warnings
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ecochat/internal/logger"
)

// ErrUnsupported means the file format has no extractor. Binary document
// formats (PDF, DOCX) need an external extraction step before loading.
var ErrUnsupported = errors.New("unsupported file format")

// codeExtensions are the file types the coding mode loads without a
// warning. Anything else still loads, with a log note.
var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".cs": true,
	".go": true, ".rs": true, ".php": true, ".rb": true, ".swift": true,
	".kt": true, ".scala": true, ".html": true, ".css": true, ".scss": true,
	".sql": true, ".sh": true, ".bash": true, ".yaml": true, ".yml": true,
	".json": true, ".xml": true, ".md": true, ".txt": true, ".env": true,
	".config": true,
}

// imageExtensions are the accepted image formats.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
}

// ExtractText extracts readable text from a document file, dispatching
// on extension. Plain text loads with encoding fallback, CSV is
// summarized rather than dumped, and binary document formats return
// ErrUnsupported.
func ExtractText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	if mb := float64(info.Size()) / (1024 * 1024); mb > 10 {
		logger.WithPrefix("loader").Warn("large file, may take time to process",
			"path", path, "size_mb", fmt.Sprintf("%.1f", mb))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return readTextFile(path)
	case ".csv":
		return SummarizeCSV(path)
	case ".pdf", ".docx", ".doc":
		return "", fmt.Errorf("%w: %s (extract to text first)", ErrUnsupported, filepath.Ext(path))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
}

// ExtractCode loads a code file as text. Unusual extensions load anyway
// with a warning.
func ExtractCode(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !codeExtensions[ext] {
		logger.WithPrefix("loader").Warn("unusual file type, loading anyway", "ext", ext)
	}
	if mb := float64(info.Size()) / (1024 * 1024); mb > 5 {
		logger.WithPrefix("loader").Warn("large code file",
			"path", path, "size_mb", fmt.Sprintf("%.1f", mb))
	}

	return readTextFile(path)
}

// ReadImage loads raw image bytes, validating the extension.
func ReadImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("image not found: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return nil, fmt.Errorf("%w: %s is not a supported image type", ErrUnsupported, ext)
	}
	if mb := float64(info.Size()) / (1024 * 1024); mb > 20 {
		logger.WithPrefix("loader").Warn("large image, may take time to process",
			"path", path, "size_mb", fmt.Sprintf("%.1f", mb))
	}

	return os.ReadFile(path)
}

// IsImageExt reports whether ext (with leading dot) is an accepted
// image format.
func IsImageExt(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// readTextFile reads a file as UTF-8, decoding as Latin-1 when the
// bytes are not valid UTF-8. Latin-1 maps every byte to a code point,
// so the fallback cannot fail.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return DecodeText(data), nil
}

// DecodeText interprets raw bytes as UTF-8 with a Latin-1 fallback.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
