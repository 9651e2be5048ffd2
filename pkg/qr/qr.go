// Package qr renders encrypted blocks or decrypted content as QR codes.
package qr

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultModulePixels is the PNG scale used when no size is requested.
const DefaultModulePixels = 4

var ErrEmptyContent = errors.New("no content to encode")

// Terminal renders content as compact half-block text suitable for printing to a terminal.
func Terminal(content string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// PNG renders content as a PNG image.
// A positive size is the image width and height in pixels, otherwise each module is DefaultModulePixels wide.
func PNG(content string, size int) ([]byte, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		// Negative sizes are interpreted by go-qrcode as a per-module scale.
		size = -DefaultModulePixels
	}
	img, err := qrcode.Encode(content, qrcode.Low, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return img, nil
}
