package validation

import (
	"testing"

	apperrors "go-image-stitcher/internal/errors"
)

func TestNewURLValidator_Defaults(t *testing.T) {
	validator := NewURLValidator()

	for _, scheme := range []string{"http", "https", "azblob"} {
		if !validator.isSchemeAllowed(scheme) {
			t.Errorf("Expected %s to be allowed by default", scheme)
		}
	}
	for _, scheme := range []string{"file", "ftp", "data"} {
		if validator.isSchemeAllowed(scheme) {
			t.Errorf("Expected %s to be rejected by default", scheme)
		}
	}
	if !validator.isHostAllowed("cdn.screens.example") {
		t.Error("Expected any host to be allowed without a host list")
	}
	if validator.maxFrames != DefaultMaxFrames {
		t.Errorf("Expected frame limit %d, got %d", DefaultMaxFrames, validator.maxFrames)
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantMsg string // empty means valid
	}{
		{"https frame", "https://cdn.screens.example/session/0001.png", ""},
		{"http frame on ip", "http://10.0.0.7/frames/2.jpg", ""},
		{"blob frame", "azblob://captures/session-1/0001.png", ""},
		{"empty", "", "URL cannot be empty"},
		{"whitespace", " \t\n", "URL cannot be empty"},
		{"relative", "frames/0001.png", "URL scheme not allowed"},
		{"ftp", "ftp://cdn.screens.example/0001.png", "URL scheme not allowed"},
		{"local file", "file:///tmp/frames/0001.png", "URL scheme not allowed"},
		{"no host", "https:///0001.png", "URL must have a valid host"},
		{"blob without name", "azblob://captures", "blob URL must name a blob"},
	}

	validator := NewURLValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateImageURL(tt.url)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %q to pass validation, got: %v", tt.url, err)
				}
				return
			}
			appErr, ok := err.(*apperrors.AppError)
			if !ok {
				t.Fatalf("Expected AppError for %q, got: %T", tt.url, err)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("Expected %q, got: %s", tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"cdn.screens.example"})

	if err := validator.ValidateImageURL("https://cdn.screens.example/1.png"); err != nil {
		t.Errorf("Expected listed host to pass, got: %v", err)
	}
	err := validator.ValidateImageURL("https://elsewhere.example/1.png")
	if appErr, ok := err.(*apperrors.AppError); !ok || appErr.Message != "URL host not allowed" {
		t.Errorf("Expected 'URL host not allowed', got: %v", err)
	}
}

func TestValidateImageURL_FileScheme(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"file"}, nil)

	if err := validator.ValidateImageURL("file:///tmp/frames/0001.png"); err != nil {
		t.Errorf("Expected file URL to pass validation, got: %v", err)
	}
	if err := validator.ValidateImageURL("file://"); err == nil {
		t.Error("Expected file URL without a path to fail")
	}
}

func TestValidateFrameURLs(t *testing.T) {
	validator := NewURLValidator()

	if err := validator.ValidateFrameURLs([]string{
		"https://cdn.screens.example/0.png",
		"https://cdn.screens.example/1.png",
	}); err != nil {
		t.Errorf("Expected valid frame list to pass, got: %v", err)
	}

	err := validator.ValidateFrameURLs(nil)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error for empty list, got: %v", err)
	}

	err = validator.ValidateFrameURLs([]string{"https://cdn.screens.example/0.png", "ftp://cdn.screens.example/1.png"})
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	if appErr.ImageIndex != 1 {
		t.Errorf("Expected failing index 1, got %d", appErr.ImageIndex)
	}
}

func TestValidateFrameURLs_MaxFrames(t *testing.T) {
	urls := []string{
		"https://cdn.screens.example/0.png",
		"https://cdn.screens.example/1.png",
		"https://cdn.screens.example/2.png",
	}

	if err := NewURLValidator().WithMaxFrames(2).ValidateFrameURLs(urls); err == nil {
		t.Error("Expected frame limit to be enforced")
	}
	if err := NewURLValidator().WithMaxFrames(0).ValidateFrameURLs(urls); err != nil {
		t.Errorf("Expected a zero limit to disable the check, got: %v", err)
	}
}
