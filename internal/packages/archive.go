package packages

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// SymbolFile is the metadata document inside a package archive
const SymbolFile = "SymbolReference.json"

var (
	navxMagic   = []byte("NAVX")
	zipMagic    = []byte("PK\x03\x04")
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
	maxDocument = int64(1 << 30)
)

// ReadArchive reads a package file and returns its metadata document
func ReadArchive(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return DecodeArchive(data)
}

// DecodeArchive extracts the metadata document from package bytes. Packages
// carry a NAVX header in front of a regular ZIP archive; the header is
// skipped using its declared length, or by searching for the first local
// file header when the length does not point at one.
func DecodeArchive(data []byte) ([]byte, error) {
	offset, err := zipOffset(data)
	if err != nil {
		return nil, err
	}
	body := data[offset:]

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		if !strings.EqualFold(path.Base(f.Name), SymbolFile) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		doc, err := io.ReadAll(io.LimitReader(rc, maxDocument+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if int64(len(doc)) > maxDocument {
			return nil, fmt.Errorf("%s exceeds the %d byte document limit", f.Name, maxDocument)
		}
		return bytes.TrimPrefix(doc, utf8BOM), nil
	}
	return nil, fmt.Errorf("archive has no %s", SymbolFile)
}

func zipOffset(data []byte) (int, error) {
	if bytes.HasPrefix(data, navxMagic) && len(data) >= 8 {
		n := int(binary.LittleEndian.Uint32(data[4:8]))
		if n > 0 && n+len(zipMagic) <= len(data) && bytes.Equal(data[n:n+len(zipMagic)], zipMagic) {
			return n, nil
		}
	}
	if i := bytes.Index(data, zipMagic); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("no zip archive found in package")
}
