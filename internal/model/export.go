package model

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// ExportPayload is the serialized form of secret material shown as a QR code
// after the user acknowledged the export warning.
type ExportPayload struct {
	Coin     Coin
	KeyHex   string
	Rotation uint32
	Tag      string
}

// NewExportPayload builds the payload for a key record
func NewExportPayload(coin Coin, rec KeyRecord) ExportPayload {
	info, _ := coin.Info()
	return ExportPayload{
		Coin:     coin,
		KeyHex:   hex.EncodeToString(rec.PrivateKey[:]),
		Rotation: rec.Rotation,
		Tag:      info.ExportTag,
	}
}

// Encode returns <privateKeyHex>|<rotationIndex>|<coinTag>
func (p ExportPayload) Encode() string {
	return strings.Join([]string{p.KeyHex, strconv.FormatUint(uint64(p.Rotation), 10), p.Tag}, "|")
}

// String keeps payloads out of logs and fmt verbs
func (p ExportPayload) String() string {
	return "ExportPayload{" + string(p.Coin) + ", <redacted>}"
}

// Wipe drops the key text reference
func (p *ExportPayload) Wipe() {
	p.KeyHex = ""
}
