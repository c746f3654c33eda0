package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/heic"
)

// isHEIC checks the ISO-BMFF "ftyp" box for HEIC/HEIF brands.
func isHEIC(data []byte, mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if mt == "image/heic" || mt == "image/heif" {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}

// normalizeImage converts HEIC/HEIF photos (iPhone default) to PNG, which every
// engine accepts. Other formats pass through untouched.
func normalizeImage(data []byte, mimeType string) ([]byte, string, error) {
	if !isHEIC(data, mimeType) {
		return data, mimeType, nil
	}

	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode HEIC image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
