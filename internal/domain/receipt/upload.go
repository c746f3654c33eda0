package receipt

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Upload describes an artifact handed to the pipeline.
// Content takes precedence over Path when both are set.
type Upload struct {
	Path     string
	Content  []byte
	MIMEType string
	Filename string
}

// Name returns the filename used for format selection.
func (u Upload) Name() string {
	if u.Filename != "" {
		return u.Filename
	}
	return filepath.Base(u.Path)
}

// Ext returns the lowercased final extension of the upload name.
func (u Upload) Ext() string {
	return strings.ToLower(filepath.Ext(u.Name()))
}

// Open returns a reader over the upload content.
func (u Upload) Open() (io.ReadCloser, error) {
	if u.Content != nil {
		return io.NopCloser(bytes.NewReader(u.Content)), nil
	}
	if u.Path == "" {
		return nil, IOError("open upload", errors.New("no content or path"))
	}
	f, err := os.Open(u.Path)
	if err != nil {
		return nil, IOError("open upload", err)
	}
	return f, nil
}

// ReadAll loads the whole upload into memory.
func (u Upload) ReadAll() ([]byte, error) {
	if u.Content != nil {
		return u.Content, nil
	}
	rc, err := u.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, IOError("read upload", err)
	}
	return data, nil
}
