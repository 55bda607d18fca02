package address

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/stretchr/testify/require"
)

func testKey(seed byte) [model.KeySize]byte {
	var k [model.KeySize]byte
	for i := range k {
		k[i] = seed + byte(i)
	}
	return k
}

func TestDeriveDeterministic(t *testing.T) {
	for _, scheme := range []Scheme{SchemeLegacy, SchemeRotating} {
		for _, coin := range model.Coins() {
			for _, rot := range []uint32{0, 1, 7, 1 << 31} {
				a, err := Derive(scheme, coin, testKey(3), rot)
				require.NoError(t, err)
				b, err := Derive(scheme, coin, testKey(3), rot)
				require.NoError(t, err)
				require.Equal(t, a, b)
				require.True(t, Valid(scheme, coin, a), "address %s", a)
			}
		}
	}
}

func TestDerivePrefixes(t *testing.T) {
	yda, err := Derive(SchemeRotating, model.CoinYadaCoin, testKey(1), 0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(yda, "YDA"))
	require.Len(t, yda, PrefixLength+BodyLength)

	sal, err := Derive(SchemeRotating, model.CoinSalvium, testKey(1), 0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sal, "SC1"))
	require.Len(t, sal, PrefixLength+BodyLength)
}

func TestLegacyMatchesFirmware(t *testing.T) {
	key := testKey(9)

	yda, err := Derive(SchemeLegacy, model.CoinYadaCoin, key, 0)
	require.NoError(t, err)
	require.Equal(t, "YDA"+hex.EncodeToString(key[:]), yda)

	sal, err := Derive(SchemeLegacy, model.CoinSalvium, key, 0)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte(hex.EncodeToString(key[:])))
	require.Len(t, sal, PrefixLength+BodyLength)
	for i := 0; i < BodyLength; i++ {
		want := Alphabet[int(digest[i%32])%58]
		require.Equal(t, want, sal[PrefixLength+i], "position %d", i)
	}
}

func TestLegacyIgnoresRotation(t *testing.T) {
	a, err := Derive(SchemeLegacy, model.CoinSalvium, testKey(2), 0)
	require.NoError(t, err)
	b, err := Derive(SchemeLegacy, model.CoinSalvium, testKey(2), 5)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRotatingChangesAddress(t *testing.T) {
	seen := make(map[string]uint32)
	for rot := uint32(0); rot < 16; rot++ {
		addr, err := Derive(SchemeRotating, model.CoinSalvium, testKey(4), rot)
		require.NoError(t, err)
		prev, dup := seen[addr]
		require.False(t, dup, "rotation %d repeats rotation %d", rot, prev)
		seen[addr] = rot
	}
}

func TestRotatingSeparatesCoins(t *testing.T) {
	yda, err := Derive(SchemeRotating, model.CoinYadaCoin, testKey(5), 0)
	require.NoError(t, err)
	sal, err := Derive(SchemeRotating, model.CoinSalvium, testKey(5), 0)
	require.NoError(t, err)
	require.NotEqual(t, yda[PrefixLength:], sal[PrefixLength:])
}

func TestRotationKey(t *testing.T) {
	key := testKey(6)

	legacy, err := RotationKey(SchemeLegacy, model.CoinSalvium, key, 3)
	require.NoError(t, err)
	require.Equal(t, key, legacy)

	r0, err := RotationKey(SchemeRotating, model.CoinSalvium, key, 0)
	require.NoError(t, err)
	require.NotEqual(t, key, r0)

	r1, err := RotationKey(SchemeRotating, model.CoinSalvium, key, 1)
	require.NoError(t, err)
	require.NotEqual(t, r0, r1)
}

func TestDeriveErrors(t *testing.T) {
	_, err := Derive(Scheme(9), model.CoinSalvium, testKey(0), 0)
	require.ErrorIs(t, err, ErrUnknownScheme)

	_, err = Derive(SchemeRotating, model.Coin("BTC"), testKey(0), 0)
	require.ErrorIs(t, err, ErrUnknownCoin)
}

func TestValid(t *testing.T) {
	addr, err := Derive(SchemeRotating, model.CoinSalvium, testKey(7), 2)
	require.NoError(t, err)

	require.True(t, Valid(SchemeRotating, model.CoinSalvium, addr))
	require.False(t, Valid(SchemeRotating, model.CoinYadaCoin, addr))
	require.False(t, Valid(SchemeRotating, model.CoinSalvium, addr[:40]))
	require.False(t, Valid(SchemeRotating, model.CoinSalvium, "SC1"+strings.Repeat("0", BodyLength)))
	require.False(t, Valid(SchemeRotating, model.CoinSalvium, "XYZ"))
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("legacy")
	require.NoError(t, err)
	require.Equal(t, SchemeLegacy, s)

	s, err = ParseScheme("rotating")
	require.NoError(t, err)
	require.Equal(t, SchemeRotating, s)
	require.True(t, s.RotationChangesAddress())

	_, err = ParseScheme("bip32")
	require.Error(t, err)
}
