package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "go-image-stitcher/internal/errors"
)

// pngHeader returns a PNG signature and IHDR chunk declaring a width x height
// 8-bit grayscale image, with no pixel data behind it
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte("\x89PNG\r\n\x1a\n"))

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeWithLimits_RejectsOversizedHeader(t *testing.T) {
	_, _, err := DecodeWithLimits(bytes.NewReader(pngHeader(12000, 12000)), DefaultDecodeLimits())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error before decoding, got %v", err)
	}
	if !strings.Contains(err.Error(), "12000x12000") {
		t.Errorf("Expected the declared size in the error, got %v", err)
	}
}

func TestDecodeWithLimits_RejectsTooManyBytes(t *testing.T) {
	body := pngBytes(t, 40, 40)

	_, _, err := DecodeWithLimits(bytes.NewReader(body), DecodeLimits{MaxBytes: int64(len(body) - 1)})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}

	img, format, err := DecodeWithLimits(bytes.NewReader(body), DecodeLimits{MaxBytes: int64(len(body)), MaxPixels: 1600})
	if err != nil {
		t.Fatalf("Expected a frame exactly at the limits to decode, got %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 40 {
		t.Errorf("Unexpected decode result %s %v", format, img.Bounds())
	}
}

func TestDecodeWithLimits_PixelLimit(t *testing.T) {
	body := pngBytes(t, 10, 10)

	if _, _, err := DecodeWithLimits(bytes.NewReader(body), DecodeLimits{MaxPixels: 99}); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for 100 pixels over a 99 limit, got %v", err)
	}
	if _, _, err := DecodeWithLimits(bytes.NewReader(body), DecodeLimits{}); err != nil {
		t.Errorf("Expected zero limits to disable the checks, got %v", err)
	}
}

func TestDecode_GarbageIsNotValidation(t *testing.T) {
	_, _, err := Decode(strings.NewReader("not an image"))
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected a plain decode error, got %v", err)
	}
}

func TestLocalImageFetcher_RejectsOversizedFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.png")
	if err := os.WriteFile(path, pngHeader(12000, 12000), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLocalImageFetcher(dir).FetchImage(context.Background(), "huge.png")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}

	limited := NewLocalImageFetcher(dir).WithLimits(DecodeLimits{MaxPixels: 200_000_000})
	if _, err := limited.FetchImage(context.Background(), "huge.png"); apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected a raised limit to let the header through, got %v", err)
	}
}
