package keystore

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/lightningnetwork/lnd/tlv"
)

const (
	// recordMagic marks a typed record image
	recordMagic uint16 = 0xCA58

	// recordVersion is the schema version written by this build
	recordVersion byte = 1

	recordHeaderLen = 2 + 1 + 2
	checksumLen     = 4
)

// Record payload fields. Even types are required by the decoder, new
// optional fields must use odd types so older builds skip them.
const (
	typeScheme      tlv.Type = 0
	typeYDAKey      tlv.Type = 2
	typeYDARotation tlv.Type = 4
	typeSALKey      tlv.Type = 6
	typeSALRotation tlv.Type = 8
	typeCreatedAt   tlv.Type = 10
)

// ErrNoRecord is returned when the region holds no valid wallet. The
// wrapped error carries the reason.
var ErrNoRecord = errors.New("no valid wallet record")

// recordFields binds the TLV records to a set of local variables
type recordFields struct {
	scheme    uint8
	ydaKey    [32]byte
	ydaRot    uint32
	salKey    [32]byte
	salRot    uint32
	createdAt uint64
}

func (f *recordFields) stream() (*tlv.Stream, error) {
	return tlv.NewStream(
		tlv.MakePrimitiveRecord(typeScheme, &f.scheme),
		tlv.MakePrimitiveRecord(typeYDAKey, &f.ydaKey),
		tlv.MakePrimitiveRecord(typeYDARotation, &f.ydaRot),
		tlv.MakePrimitiveRecord(typeSALKey, &f.salKey),
		tlv.MakePrimitiveRecord(typeSALRotation, &f.salRot),
		tlv.MakePrimitiveRecord(typeCreatedAt, &f.createdAt),
	)
}

func (f *recordFields) wipe() {
	clear(f.ydaKey[:])
	clear(f.salKey[:])
}

// encodeRecord serializes state into a typed record image:
//
//	magic u16 LE | version u8 | payload length u16 LE | TLV payload | checksum
//
// The checksum is the first four bytes of SHA-256 over everything before it.
func encodeRecord(state *model.WalletState) ([]byte, error) {
	yda, ok := state.Keys[model.CoinYadaCoin]
	if !ok {
		return nil, fmt.Errorf("state has no %s key", model.CoinYadaCoin)
	}
	sal, ok := state.Keys[model.CoinSalvium]
	if !ok {
		return nil, fmt.Errorf("state has no %s key", model.CoinSalvium)
	}

	fields := recordFields{
		scheme:    state.Scheme,
		ydaKey:    yda.PrivateKey,
		ydaRot:    yda.Rotation,
		salKey:    sal.PrivateKey,
		salRot:    sal.Rotation,
		createdAt: uint64(state.CreatedAt),
	}
	defer fields.wipe()

	stream, err := fields.stream()
	if err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	if err := stream.Encode(&payload); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	defer clear(payload.Bytes())

	size := recordHeaderLen + payload.Len() + checksumLen
	if size > Capacity {
		return nil, fmt.Errorf("record of %d bytes exceeds region capacity %d", size, Capacity)
	}

	image := make([]byte, 0, size)
	image = binary.LittleEndian.AppendUint16(image, recordMagic)
	image = append(image, recordVersion)
	image = binary.LittleEndian.AppendUint16(image, uint16(payload.Len()))
	image = append(image, payload.Bytes()...)
	sum := sha256.Sum256(image)
	image = append(image, sum[:checksumLen]...)

	return image, nil
}

// decodeRecord validates and parses a typed record image. Any failure
// returns ErrNoRecord; a partially parsed record is never returned.
func decodeRecord(image []byte) (*model.WalletState, error) {
	if len(image) < recordHeaderLen+checksumLen {
		return nil, fmt.Errorf("%w: image too short", ErrNoRecord)
	}
	if magic := binary.LittleEndian.Uint16(image); magic != recordMagic {
		return nil, fmt.Errorf("%w: magic mismatch %#04x", ErrNoRecord, magic)
	}
	if image[2] != recordVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrNoRecord, image[2])
	}

	n := int(binary.LittleEndian.Uint16(image[3:5]))
	end := recordHeaderLen + n
	if len(image) < end+checksumLen {
		return nil, fmt.Errorf("%w: truncated payload", ErrNoRecord)
	}
	sum := sha256.Sum256(image[:end])
	if !bytes.Equal(sum[:checksumLen], image[end:end+checksumLen]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrNoRecord)
	}

	var fields recordFields
	defer fields.wipe()

	stream, err := fields.stream()
	if err != nil {
		return nil, err
	}
	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(image[recordHeaderLen:end]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecord, err)
	}
	for _, typ := range []tlv.Type{typeScheme, typeYDAKey, typeYDARotation, typeSALKey, typeSALRotation} {
		if _, ok := parsed[typ]; !ok {
			return nil, fmt.Errorf("%w: missing field %d", ErrNoRecord, typ)
		}
	}

	state := model.NewWalletState(fields.scheme)
	state.CreatedAt = int64(fields.createdAt)
	state.Keys[model.CoinYadaCoin] = model.KeyRecord{PrivateKey: fields.ydaKey, Rotation: fields.ydaRot}
	state.Keys[model.CoinSalvium] = model.KeyRecord{PrivateKey: fields.salKey, Rotation: fields.salRot}

	return state, nil
}
