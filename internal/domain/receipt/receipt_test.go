package receipt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindMatching(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
	}{
		{"unsupported format", UnsupportedFormat("dispatch", cause), ErrUnsupportedFormat, KindUnsupportedFormat},
		{"io", IOError("open", cause), ErrIO, KindIO},
		{"parse", ParseError("parse csv", cause), ErrParse, KindParse},
		{"ocr", OCRFailure("recognize", cause), ErrOCRFailure, KindOCRFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to ingest: %w", tt.err)

			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.True(t, errors.Is(wrapped, cause))

			kind, ok := KindOf(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}

	t.Run("kinds do not cross match", func(t *testing.T) {
		err := ParseError("parse json", cause)
		assert.False(t, errors.Is(err, ErrOCRFailure))
		assert.False(t, errors.Is(err, ErrIO))
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		_, ok := KindOf(cause)
		assert.False(t, ok)
	})

	t.Run("message includes op and kind", func(t *testing.T) {
		assert.Equal(t, "parse csv: parse_error: boom", ParseError("parse csv", cause).Error())
	})
}

func TestUpload_Open(t *testing.T) {
	t.Run("content wins over path", func(t *testing.T) {
		u := Upload{Path: "/does/not/exist.csv", Content: []byte("Vendor\nBuildCo\n")}
		rc, err := u.Open()
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "Vendor\nBuildCo\n", string(data))
	})

	t.Run("reads from path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "receipts.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

		data, err := Upload{Path: path}.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("missing file is an io error", func(t *testing.T) {
		_, err := Upload{Path: filepath.Join(t.TempDir(), "missing.csv")}.ReadAll()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("empty upload is an io error", func(t *testing.T) {
		_, err := Upload{}.Open()
		assert.ErrorIs(t, err, ErrIO)
	})
}

func TestUpload_Ext(t *testing.T) {
	assert.Equal(t, ".csv", Upload{Filename: "Expenses.CSV"}.Ext())
	assert.Equal(t, ".xlsx", Upload{Path: "/tmp/q1/receipts.xlsx"}.Ext())
	assert.Equal(t, "", Upload{Filename: "README"}.Ext())
}

func TestRecord_Helpers(t *testing.T) {
	r := Record{
		LineItems: []LineItem{
			{Description: "2x4 Studs", Amount: 120},
			{Description: "Nails", Amount: 15.5},
		},
	}

	assert.InDelta(t, 135.5, r.LineItemTotal(), 0.0001)
	assert.Equal(t, []string{"2x4 Studs", "Nails"}, r.Descriptions())
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "J-1", *StringPtr("J-1"))
	assert.True(t, SourceImage.Valid())
	assert.False(t, Source("pdf").Valid())
}
