// Package structfile reads and writes structure documents on disk. Paths
// ending in .zst are zstd compressed.
package structfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/blocks"
)

// MaxFileBytes bounds a decompressed structure document.
const MaxFileBytes = 64 << 20

func compressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zst")
}

// Read loads a structure and checks it against the structure schema. A
// structure without an id takes the file name (minus extensions).
func Read(path string) (*blocks.Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(io.LimitReader(bufio.NewReaderSize(r, 256*1024), MaxFileBytes))
	if err != nil {
		return nil, err
	}
	s, err := protocol.DecodeStructure(raw)
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = baseName(path)
	}
	return s, nil
}

// Write stores s as indented JSON, creating parent directories.
func Write(path string, s *blocks.Structure) error {
	if s == nil {
		return blocks.ErrEmptyStructure
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if !compressed(path) {
		return os.WriteFile(path, raw, 0o644)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, bytes.NewReader(raw)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func baseName(path string) string {
	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" || ext == name {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}
