package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CreateWriter resolves a log output specification to an io.Writer.
// Supported values: "" or "stdout", "stderr", "file:///path" or a plain
// file path (parent directories are created, output is appended).
func CreateWriter(output string) (io.Writer, error) {
	switch {
	case output == "" || output == "stdout":
		return os.Stdout, nil
	case output == "stderr":
		return os.Stderr, nil
	case strings.HasPrefix(output, "file://"):
		return createFileWriter(strings.TrimPrefix(output, "file://"))
	case strings.Contains(output, "://"):
		return nil, fmt.Errorf("unsupported log output: %s", output)
	default:
		return createFileWriter(output)
	}
}

func createFileWriter(filePath string) (io.Writer, error) {
	dir := filepath.Dir(filePath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	return file, nil
}
