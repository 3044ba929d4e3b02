// Package threemf reads and rewrites 3MF job containers. A 3MF file is a
// ZIP archive; the slicers embed the machine toolpath as a .gcode entry
// next to the model and metadata entries.
package threemf

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoToolpath indicates a container with no embedded .gcode entry,
// typically a 3MF that was exported without slicing.
var ErrNoToolpath = errors.New("no toolpath script found in container")

// toolpathExt is the entry suffix recognized as a toolpath script.
const toolpathExt = ".gcode"

// Toolpath is the first embedded toolpath script of a container. Extra
// .gcode entries are ignored, not an error.
type Toolpath struct {
	// Name is the entry path inside the archive, reused verbatim when the
	// container is repacked.
	Name string
	Text string
}

// ExtractToolpath returns the first .gcode entry of the ZIP container read
// from r.
func ExtractToolpath(r io.ReaderAt, size int64) (Toolpath, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Toolpath{}, fmt.Errorf("failed to open container: %w", err)
	}

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, toolpathExt) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Toolpath{}, fmt.Errorf("failed to open toolpath entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err != nil {
			return Toolpath{}, fmt.Errorf("failed to read toolpath entry %s: %w", f.Name, err)
		}
		if closeErr != nil {
			return Toolpath{}, fmt.Errorf("failed to close toolpath entry %s: %w", f.Name, closeErr)
		}
		return Toolpath{Name: f.Name, Text: string(data)}, nil
	}

	return Toolpath{}, ErrNoToolpath
}

// Repack writes a copy of the container read from r to w, replacing the
// entry named entryName with script. Every other entry is copied verbatim
// with its original compression, so models, metadata, and thumbnails
// survive byte for byte.
func Repack(r io.ReaderAt, size int64, w io.Writer, entryName, script string) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}

	zw := zip.NewWriter(w)

	replaced := false
	for _, f := range zr.File {
		if f.Name == entryName {
			if err := writeScriptEntry(zw, entryName, script); err != nil {
				return err
			}
			replaced = true
			continue
		}
		if err := copyRawEntry(zw, f); err != nil {
			return err
		}
	}

	if !replaced {
		return fmt.Errorf("%w: entry %s missing during repack", ErrNoToolpath, entryName)
	}

	return zw.Close()
}

func writeScriptEntry(zw *zip.Writer, name, script string) error {
	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("failed to create toolpath entry %s: %w", name, err)
	}
	if _, err := io.WriteString(dst, script); err != nil {
		return fmt.Errorf("failed to write toolpath entry %s: %w", name, err)
	}
	return nil
}

// copyRawEntry transfers an entry without decompressing it.
func copyRawEntry(zw *zip.Writer, f *zip.File) error {
	src, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	header := f.FileHeader
	dst, err := zw.CreateRaw(&header)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", f.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy entry %s: %w", f.Name, err)
	}
	return nil
}
