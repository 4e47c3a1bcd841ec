// Package upload stores customer files on local disk under the
// configured uploads directory and serves them back via /uploads/.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultMaxBytes = 5 << 20

// Errors returned by the saver.
var (
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Content types accepted for prescriptions, payment proofs and product
// images. Detection is by content sniffing, not the client's header.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Saver writes uploaded files into category subdirectories of Dir.
type Saver struct {
	Dir      string
	MaxBytes int64
	now      func() time.Time
}

// NewSaver creates the uploads directory tree and returns a Saver.
func NewSaver(dir string) (*Saver, error) {
	for _, d := range []string{dir, filepath.Join(dir, "products")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", d, err)
		}
	}
	return &Saver{Dir: dir, MaxBytes: DefaultMaxBytes, now: time.Now}, nil
}

// Save sniffs the content type, enforces the size limit and writes the
// file under category (empty for the uploads root). The returned URL
// path is what gets stored on the order or product.
func (s *Saver) Save(category, originalName string, r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if _, ok := allowedTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), sanitizeName(originalName))
	dst := filepath.Join(s.Dir, category, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	defer f.Close()

	// +1 so we can tell "exactly at the limit" from "over it".
	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.MaxBytes+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if written > s.MaxBytes {
		os.Remove(dst)
		return "", ErrFileTooLarge
	}

	if category == "" {
		return "/uploads/" + name, nil
	}
	return "/uploads/" + category + "/" + name, nil
}

// LogPrescription appends one audit line per prescription upload to
// prescriptions.log next to the files.
func (s *Saver) LogPrescription(name, phone, address, fileURL string) error {
	f, err := os.OpenFile(filepath.Join(s.Dir, "prescriptions.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open prescription log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s | %s | %s | %s | %s\n",
		s.now().UTC().Format(time.RFC3339), name, phone, address, fileURL)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append prescription log: %w", err)
	}
	return nil
}

// sanitizeName keeps only the base name and replaces whitespace so the
// stored name is safe in a URL path.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	return strings.Join(strings.Fields(name), "_")
}
