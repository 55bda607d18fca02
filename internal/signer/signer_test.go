package signer

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"
)

func TestUnavailable(t *testing.T) {
	s, err := New("none")
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), [32]byte{1}, []byte("tx"))
	require.ErrorIs(t, err, ErrSigningUnavailable)
}

func TestSecp256k1Recoverable(t *testing.T) {
	s, err := New("secp256k1")
	require.NoError(t, err)

	var key [32]byte
	key[31] = 7
	sig, err := s.Sign(context.Background(), key, []byte("tx-bytes"))
	require.NoError(t, err)
	require.Len(t, sig, 65)

	digest := sha256.Sum256([]byte("tx-bytes"))
	pub, compressed, err := ecdsa.RecoverCompact(sig, digest[:])
	require.NoError(t, err)
	require.True(t, compressed)
	require.True(t, pub.IsEqual(secp256k1.PrivKeyFromBytes(key[:]).PubKey()))
}

func TestSecp256k1RejectsEmptyData(t *testing.T) {
	_, err := Secp256k1{}.Sign(context.Background(), [32]byte{1}, nil)
	require.Error(t, err)
}

func TestSecp256k1HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Secp256k1{}.Sign(ctx, [32]byte{1}, []byte("tx"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestUnknownSigner(t *testing.T) {
	_, err := New("ring")
	require.Error(t, err)
}
