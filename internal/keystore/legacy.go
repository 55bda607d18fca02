package keystore

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// Fixed offsets of the original firmware image
const (
	legacyMagic uint16 = 0xCA57

	legacyAddrMagic  = 0
	legacyAddrYDAKey = 2
	legacyAddrSALKey = 66
	legacyAddrSALRot = 130
	legacyKeyHexLen  = 64
	legacyImageLen   = legacyAddrSALRot + 4
)

// decodeLegacy parses the fixed-offset layout. Both key slots hold 64 hex
// characters and the Salvium rotation is a little endian int32.
func decodeLegacy(image []byte) (*model.WalletState, error) {
	if len(image) < legacyImageLen {
		return nil, fmt.Errorf("%w: legacy image too short", ErrNoRecord)
	}
	if magic := binary.LittleEndian.Uint16(image[legacyAddrMagic:]); magic != legacyMagic {
		return nil, fmt.Errorf("%w: magic mismatch %#04x", ErrNoRecord, magic)
	}

	var yda, sal model.KeyRecord
	if _, err := hex.Decode(yda.PrivateKey[:], image[legacyAddrYDAKey:legacyAddrYDAKey+legacyKeyHexLen]); err != nil {
		return nil, fmt.Errorf("%w: yadacoin slot: %v", ErrNoRecord, err)
	}
	if _, err := hex.Decode(sal.PrivateKey[:], image[legacyAddrSALKey:legacyAddrSALKey+legacyKeyHexLen]); err != nil {
		yda.Wipe()
		return nil, fmt.Errorf("%w: salvium slot: %v", ErrNoRecord, err)
	}

	rot := int32(binary.LittleEndian.Uint32(image[legacyAddrSALRot:]))
	if rot < 0 {
		yda.Wipe()
		sal.Wipe()
		return nil, fmt.Errorf("%w: negative rotation %d", ErrNoRecord, rot)
	}
	sal.Rotation = uint32(rot)

	state := model.NewWalletState(uint8(address.SchemeLegacy))
	state.Keys[model.CoinYadaCoin] = yda
	state.Keys[model.CoinSalvium] = sal
	return state, nil
}

// EncodeLegacy writes state in the fixed-offset layout. Only the Salvium
// rotation survives; it must fit an int32.
func EncodeLegacy(state *model.WalletState) ([]byte, error) {
	yda, ok := state.Keys[model.CoinYadaCoin]
	if !ok {
		return nil, fmt.Errorf("state has no %s key", model.CoinYadaCoin)
	}
	sal, ok := state.Keys[model.CoinSalvium]
	if !ok {
		return nil, fmt.Errorf("state has no %s key", model.CoinSalvium)
	}
	if sal.Rotation > math.MaxInt32 {
		return nil, fmt.Errorf("rotation %d does not fit the legacy layout", sal.Rotation)
	}

	image := make([]byte, Capacity)
	binary.LittleEndian.PutUint16(image[legacyAddrMagic:], legacyMagic)
	hex.Encode(image[legacyAddrYDAKey:], yda.PrivateKey[:])
	hex.Encode(image[legacyAddrSALKey:], sal.PrivateKey[:])
	binary.LittleEndian.PutUint32(image[legacyAddrSALRot:], sal.Rotation)
	return image, nil
}

// DecodeImage parses a raw region image in either layout
func DecodeImage(image []byte) (*model.WalletState, error) {
	if len(image) < 2 {
		return nil, fmt.Errorf("%w: image too short", ErrNoRecord)
	}
	switch binary.LittleEndian.Uint16(image) {
	case recordMagic:
		return decodeRecord(image)
	case legacyMagic:
		return decodeLegacy(image)
	default:
		return nil, fmt.Errorf("%w: magic mismatch %#04x", ErrNoRecord, binary.LittleEndian.Uint16(image))
	}
}
