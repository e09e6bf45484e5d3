// Package qrcode encodes validation URLs as PNG QR codes without any network call.
package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const minSize = 64

// Encoder produces PNG QR codes at a fixed recovery level.
type Encoder struct {
	level goqrcode.RecoveryLevel
}

// NewEncoder returns an encoder using medium error correction.
func NewEncoder() *Encoder {
	return &Encoder{level: goqrcode.Medium}
}

// Encode renders content as a square PNG of at least size pixels.
func (e *Encoder) Encode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content must not be empty")
	}
	if size < minSize {
		size = minSize
	}

	png, err := goqrcode.Encode(content, e.level, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
