package screen

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QREncoder turns bytes into a scannable module matrix. true is a dark module.
type QREncoder interface {
	Encode(data []byte) ([][]bool, error)
}

// GoQREncoder encodes with go-qrcode
type GoQREncoder struct {
	Level qrcode.RecoveryLevel
}

// NewQREncoder returns an encoder with medium error correction
func NewQREncoder() GoQREncoder {
	return GoQREncoder{Level: qrcode.Medium}
}

// Encode returns the module matrix without the quiet zone
func (e GoQREncoder) Encode(data []byte) ([][]bool, error) {
	qr, err := qrcode.New(string(data), e.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}
	qr.DisableBorder = true
	return qr.Bitmap(), nil
}

// PNG renders content as a size x size PNG image
func PNG(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}
