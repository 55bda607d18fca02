package keystore

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/crypto"
	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/stretchr/testify/require"
)

var testParams = crypto.Params{LogN: 4, R: 8, P: 1}

func randomState(t *testing.T) *model.WalletState {
	t.Helper()

	state := model.NewWalletState(uint8(address.SchemeRotating))
	state.CreatedAt = 1700000000
	for i, coin := range model.Coins() {
		var rec model.KeyRecord
		_, err := rand.Read(rec.PrivateKey[:])
		require.NoError(t, err)
		rec.Rotation = uint32(i*7 + 3)
		state.Keys[coin] = rec
	}
	return state
}

func regions(t *testing.T) map[string]Region {
	t.Helper()

	dir := t.TempDir()
	file, err := NewFileRegion(filepath.Join(dir, "wallet.eeprom"))
	require.NoError(t, err)

	db, err := OpenBoltRegion(filepath.Join(dir, "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Region{
		"memory": NewMemRegion(),
		"file":   file,
		"bolt":   db,
		"sealed": NewSealedRegion(NewMemRegion(), []byte("dev"), testParams),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, region := range regions(t) {
		t.Run(name, func(t *testing.T) {
			store := New(region)
			state := randomState(t)

			require.NoError(t, store.Save(state))

			got, err := store.Load()
			require.NoError(t, err)
			require.Equal(t, state.Scheme, got.Scheme)
			require.Equal(t, state.CreatedAt, got.CreatedAt)
			require.Equal(t, state.Keys, got.Keys)
		})
	}
}

func TestLoadBlank(t *testing.T) {
	for name, region := range regions(t) {
		t.Run(name, func(t *testing.T) {
			_, err := New(region).Load()
			require.ErrorIs(t, err, ErrNoRecord)
		})
	}
}

func TestResetForgetsRecord(t *testing.T) {
	for name, region := range regions(t) {
		t.Run(name, func(t *testing.T) {
			store := New(region)
			require.NoError(t, store.Save(randomState(t)))
			require.NoError(t, store.Reset())

			_, err := store.Load()
			require.ErrorIs(t, err, ErrNoRecord)
		})
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	region := NewMemRegion()
	store := New(region)
	require.NoError(t, store.Save(randomState(t)))

	// Whatever sits in the key slots, a wrong marker means no wallet.
	garbage := make([]byte, Capacity)
	_, err := rand.Read(garbage)
	require.NoError(t, err)
	binary.LittleEndian.PutUint16(garbage, 0xBEEF)
	region.Poke(0, garbage)

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadRejectsCorruptPayload(t *testing.T) {
	region := NewMemRegion()
	store := New(region)
	require.NoError(t, store.Save(randomState(t)))

	image, err := region.Load()
	require.NoError(t, err)

	// Flip one key byte; the magic still matches but the checksum fails.
	region.Poke(recordHeaderLen+10, []byte{image[recordHeaderLen+10] ^ 0xFF})

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadRejectsTruncatedPayload(t *testing.T) {
	region := NewMemRegion()
	store := New(region)
	require.NoError(t, store.Save(randomState(t)))

	// Claim a payload that runs past the region.
	region.Poke(3, []byte{0xFF, 0x01})

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	region := NewMemRegion()
	store := New(region)
	require.NoError(t, store.Save(randomState(t)))
	region.Poke(2, []byte{9})

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadLegacyImage(t *testing.T) {
	state := randomState(t)
	state.Scheme = uint8(address.SchemeLegacy)
	sal := state.Keys[model.CoinSalvium]
	sal.Rotation = 5
	state.Keys[model.CoinSalvium] = sal

	image, err := EncodeLegacy(state)
	require.NoError(t, err)

	region := NewMemRegion()
	require.NoError(t, region.Store(image))

	got, err := New(region).Load()
	require.NoError(t, err)
	require.Equal(t, uint8(address.SchemeLegacy), got.Scheme)
	require.Equal(t, state.Keys[model.CoinYadaCoin].PrivateKey, got.Keys[model.CoinYadaCoin].PrivateKey)
	require.Equal(t, uint32(0), got.Keys[model.CoinYadaCoin].Rotation)
	require.Equal(t, state.Keys[model.CoinSalvium], got.Keys[model.CoinSalvium])
}

func TestLegacyOffsets(t *testing.T) {
	state := randomState(t)
	image, err := EncodeLegacy(state)
	require.NoError(t, err)

	require.Equal(t, []byte{0x57, 0xCA}, image[0:2])
	require.Len(t, string(image[2:66]), 64)
	require.Equal(t, uint32(state.Keys[model.CoinSalvium].Rotation), binary.LittleEndian.Uint32(image[130:134]))
}

func TestLoadLegacyRejectsBadHex(t *testing.T) {
	image, err := EncodeLegacy(randomState(t))
	require.NoError(t, err)
	image[legacyAddrSALKey+10] = 'z'

	region := NewMemRegion()
	require.NoError(t, region.Store(image))

	_, err = New(region).Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestLoadLegacyRejectsNegativeRotation(t *testing.T) {
	image, err := EncodeLegacy(randomState(t))
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(image[legacyAddrSALRot:], 0xFFFFFFFF)

	region := NewMemRegion()
	require.NoError(t, region.Store(image))

	_, err = New(region).Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestSaveAlwaysWritesTypedRecord(t *testing.T) {
	image, err := EncodeLegacy(randomState(t))
	require.NoError(t, err)

	region := NewMemRegion()
	require.NoError(t, region.Store(image))
	store := New(region)

	state, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(state))

	raw, err := region.Load()
	require.NoError(t, err)
	require.Equal(t, recordMagic, binary.LittleEndian.Uint16(raw))

	again, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, state.Keys, again.Keys)
}

func TestSaveRequiresBothCoins(t *testing.T) {
	state := model.NewWalletState(uint8(address.SchemeRotating))
	state.Keys[model.CoinSalvium] = model.KeyRecord{}

	require.Error(t, New(NewMemRegion()).Save(state))
}

func TestSaveFailureKeepsPreviousRecord(t *testing.T) {
	region := NewMemRegion()
	store := New(region)
	first := randomState(t)
	require.NoError(t, store.Save(first))

	region.FailStore = errors.New("write fault")
	require.Error(t, store.Save(randomState(t)))

	region.FailStore = nil
	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, first.Keys, got.Keys)
}

func TestSealedWrongPassword(t *testing.T) {
	inner := NewMemRegion()
	require.NoError(t, New(NewSealedRegion(inner, []byte("dev"), testParams)).Save(randomState(t)))

	_, err := New(NewSealedRegion(inner, []byte("wrong"), testParams)).Load()
	require.ErrorIs(t, err, crypto.ErrInvalidPasswordOrCorrupt)
	require.False(t, errors.Is(err, ErrNoRecord))
}

func TestSealedRejectsPlainImage(t *testing.T) {
	inner := NewMemRegion()
	require.NoError(t, New(inner).Save(randomState(t)))
	before, err := inner.Load()
	require.NoError(t, err)

	_, err = New(NewSealedRegion(inner, []byte("dev"), testParams)).Load()
	require.ErrorIs(t, err, ErrUnsealedImage)
	require.False(t, errors.Is(err, ErrNoRecord))

	after, err := inner.Load()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSealedErasedRegionIsBlank(t *testing.T) {
	inner := NewMemRegion()
	store := New(NewSealedRegion(inner, []byte("dev"), testParams))
	require.NoError(t, store.Save(randomState(t)))
	require.NoError(t, store.Reset())

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoRecord)
}

func TestSealedHeaderCorruptionIsFatal(t *testing.T) {
	headerLen := crypto.Overhead - 16
	for offset := 0; offset < headerLen; offset++ {
		inner := NewMemRegion()
		require.NoError(t, New(NewSealedRegion(inner, []byte("dev"), testParams)).Save(randomState(t)))

		image, err := inner.Load()
		require.NoError(t, err)
		inner.Poke(offset, []byte{image[offset] ^ 0xFF})

		_, err = New(NewSealedRegion(inner, []byte("dev"), testParams)).Load()
		require.Error(t, err, "offset %d", offset)
		require.False(t, errors.Is(err, ErrNoRecord), "offset %d: %v", offset, err)
		require.True(t, errors.Is(err, crypto.ErrInvalidPasswordOrCorrupt) ||
			errors.Is(err, ErrUnsealedImage), "offset %d: %v", offset, err)
	}
}

func TestFileRegionPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet.eeprom")
	region, err := NewFileRegion(path)
	require.NoError(t, err)

	state := randomState(t)
	require.NoError(t, New(region).Save(state))

	reopened, err := NewFileRegion(path)
	require.NoError(t, err)
	got, err := New(reopened).Load()
	require.NoError(t, err)
	require.Equal(t, state.Keys, got.Keys)

	raw, err := reopened.Load()
	require.NoError(t, err)
	require.Len(t, raw, Capacity)
}

func TestBoltRegionPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	region, err := OpenBoltRegion(path)
	require.NoError(t, err)

	state := randomState(t)
	require.NoError(t, New(region).Save(state))
	require.NoError(t, region.Close())

	reopened, err := OpenBoltRegion(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := New(reopened).Load()
	require.NoError(t, err)
	require.Equal(t, state.Keys, got.Keys)
}

func TestRegionCapacity(t *testing.T) {
	require.Error(t, NewMemRegion().Store(make([]byte, Capacity+1)))
}
