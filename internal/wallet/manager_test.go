package wallet

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/crypto"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/signer"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, region keystore.Region) (*Manager, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewManager(Config{
		Store:  keystore.New(region),
		Scheme: address.SchemeRotating,
		Signers: map[model.Coin]signer.Signer{
			model.CoinYadaCoin: signer.Secp256k1{},
		},
		ExportTimeout: time.Minute,
		Now:           clock.Now,
	})
	return m, clock
}

func TestFirstBootGeneratesWallet(t *testing.T) {
	region := keystore.NewMemRegion()
	m, _ := newTestManager(t, region)

	require.NoError(t, m.Initialize())
	assert.Equal(t, StateReady, m.State())

	yda, err := m.Address(model.CoinYadaCoin)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(yda, "YDA"))
	assert.Len(t, yda, 3+address.BodyLength)

	sal, err := m.Address(model.CoinSalvium)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sal, "SC1"))

	for _, coin := range model.Coins() {
		rot, err := m.Rotation(coin)
		require.NoError(t, err)
		assert.Zero(t, rot)
	}

	stored, err := keystore.New(region).Load()
	require.NoError(t, err)
	assert.Len(t, stored.Keys, 2)
	assert.Equal(t, int64(1700000000), stored.CreatedAt)
}

func TestReloadKeepsAddresses(t *testing.T) {
	region := keystore.NewMemRegion()
	first, _ := newTestManager(t, region)
	require.NoError(t, first.Initialize())
	_, err := first.Rotate(model.CoinSalvium)
	require.NoError(t, err)
	before := first.Snapshot()
	first.Close()

	second, _ := newTestManager(t, region)
	require.NoError(t, second.Initialize())
	after := second.Snapshot()

	require.Len(t, after.Coins, 2)
	for i := range before.Coins {
		assert.Equal(t, before.Coins[i].Address, after.Coins[i].Address)
		assert.Equal(t, before.Coins[i].Rotation, after.Coins[i].Rotation)
	}
}

func TestRotatePersistsEveryStep(t *testing.T) {
	region := keystore.NewMemRegion()
	m, _ := newTestManager(t, region)
	require.NoError(t, m.Initialize())

	seen := map[string]bool{}
	addr, err := m.Address(model.CoinSalvium)
	require.NoError(t, err)
	seen[addr] = true

	for i := uint32(1); i <= 3; i++ {
		rot, err := m.Rotate(model.CoinSalvium)
		require.NoError(t, err)
		assert.Equal(t, i, rot)

		stored, err := keystore.New(region).Load()
		require.NoError(t, err)
		assert.Equal(t, i, stored.Keys[model.CoinSalvium].Rotation)
		assert.Zero(t, stored.Keys[model.CoinYadaCoin].Rotation)

		addr, err := m.Address(model.CoinSalvium)
		require.NoError(t, err)
		assert.False(t, seen[addr], "address repeated at rotation %d", i)
		seen[addr] = true
	}
}

func TestRotateExhausted(t *testing.T) {
	region := keystore.NewMemRegion()
	m, _ := newTestManager(t, region)
	require.NoError(t, m.Initialize())

	m.mu.Lock()
	rec := m.wallet.Keys[model.CoinYadaCoin]
	rec.Rotation = ^uint32(0)
	m.wallet.Keys[model.CoinYadaCoin] = rec
	m.mu.Unlock()

	_, err := m.Rotate(model.CoinYadaCoin)
	assert.ErrorIs(t, err, ErrRotationExhausted)
	assert.Equal(t, StateReady, m.State())
}

func TestRotateSaveFailureRollsBack(t *testing.T) {
	region := keystore.NewMemRegion()
	m, _ := newTestManager(t, region)
	require.NoError(t, m.Initialize())

	before, err := m.Address(model.CoinYadaCoin)
	require.NoError(t, err)

	region.FailStore = errors.New("write fault")
	_, err = m.Rotate(model.CoinYadaCoin)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, StateFaulted, m.State())

	stored, err := keystore.New(region).Load()
	require.NoError(t, err)
	assert.Zero(t, stored.Keys[model.CoinYadaCoin].Rotation)

	m.mu.Lock()
	assert.Zero(t, m.wallet.Keys[model.CoinYadaCoin].Rotation)
	assert.Equal(t, before, m.addresses[model.CoinYadaCoin])
	m.mu.Unlock()
}

func TestNotReadyBeforeInitialize(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())

	_, err := m.Address(model.CoinYadaCoin)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.Rotate(model.CoinYadaCoin)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.ArmExport(model.CoinYadaCoin)
	assert.ErrorIs(t, err, ErrNotReady)

	snap := m.Snapshot()
	assert.Equal(t, "uninitialized", snap.State)
	assert.Empty(t, snap.Coins)
}

func TestEntropyFailure(t *testing.T) {
	m := NewManager(Config{
		Store:   keystore.New(keystore.NewMemRegion()),
		Entropy: iotest.ErrReader(errors.New("no entropy")),
		Scheme:  address.SchemeRotating,
	})

	err := m.Initialize()
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, StateFaulted, m.State())
	assert.Contains(t, m.Snapshot().Fault, "no entropy")
}

func TestZeroEntropyRejected(t *testing.T) {
	m := NewManager(Config{
		Store:   keystore.New(keystore.NewMemRegion()),
		Entropy: bytes.NewReader(make([]byte, 64)),
		Scheme:  address.SchemeRotating,
	})

	var genErr *GenerationError
	require.ErrorAs(t, m.Initialize(), &genErr)
}

func TestInitialSaveFailureIsFatal(t *testing.T) {
	region := keystore.NewMemRegion()
	region.FailStore = errors.New("write fault")
	m, _ := newTestManager(t, region)

	err := m.Initialize()
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "save", storageErr.Op)
	assert.Equal(t, StateFaulted, m.State())
}

func TestWrongPasswordIsFatal(t *testing.T) {
	params := crypto.Params{LogN: 4, R: 8, P: 1}
	inner := keystore.NewMemRegion()

	good, _ := newTestManager(t, keystore.NewSealedRegion(inner, []byte("right"), params))
	require.NoError(t, good.Initialize())
	imageBefore, err := inner.Load()
	require.NoError(t, err)

	bad, _ := newTestManager(t, keystore.NewSealedRegion(inner, []byte("wrong"), params))
	err = bad.Initialize()
	require.ErrorIs(t, err, crypto.ErrInvalidPasswordOrCorrupt)
	assert.Equal(t, StateFaulted, bad.State())

	imageAfter, err := inner.Load()
	require.NoError(t, err)
	assert.Equal(t, imageBefore, imageAfter)
}

func TestDamagedSealKeepsWallet(t *testing.T) {
	params := crypto.Params{LogN: 4, R: 8, P: 1}

	for _, offset := range []int{0, 2, 3} {
		inner := keystore.NewMemRegion()
		good, _ := newTestManager(t, keystore.NewSealedRegion(inner, []byte("right"), params))
		require.NoError(t, good.Initialize())

		inner.Poke(offset, []byte{0})
		imageBefore, err := inner.Load()
		require.NoError(t, err)

		reopened, _ := newTestManager(t, keystore.NewSealedRegion(inner, []byte("right"), params))
		err = reopened.Initialize()
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr, "offset %d", offset)
		assert.Equal(t, StateFaulted, reopened.State())

		imageAfter, err := inner.Load()
		require.NoError(t, err)
		assert.Equal(t, imageBefore, imageAfter, "offset %d", offset)
	}
}

func TestLegacyImageKeepsLegacyScheme(t *testing.T) {
	region := keystore.NewMemRegion()
	first := NewManager(Config{
		Store:  keystore.New(region),
		Scheme: address.SchemeLegacy,
	})
	require.NoError(t, first.Initialize())
	yda, err := first.Address(model.CoinYadaCoin)
	require.NoError(t, err)
	assert.Len(t, yda, 3+64)

	// A daemon configured for rotating addresses keeps the stored scheme.
	second, _ := newTestManager(t, region)
	require.NoError(t, second.Initialize())
	assert.Equal(t, address.SchemeLegacy, second.Scheme())
	again, err := second.Address(model.CoinYadaCoin)
	require.NoError(t, err)
	assert.Equal(t, yda, again)

	// The legacy YadaCoin slot is public address material.
	_, err = second.Sign(context.Background(), model.CoinYadaCoin, []byte("tx"))
	assert.ErrorIs(t, err, signer.ErrSigningUnavailable)
	_, err = second.ArmExport(model.CoinYadaCoin)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = second.ArmExport(model.CoinSalvium)
	assert.NoError(t, err)
}

func TestApplyRotationFromHost(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())
	require.NoError(t, m.Initialize())

	current, err := m.Address(model.CoinSalvium)
	require.NoError(t, err)
	next, err := m.NextAddress(model.CoinSalvium)
	require.NoError(t, err)

	_, err = m.ApplyRotationFromHost(model.CoinSalvium, current, "SC1bogus")
	assert.ErrorIs(t, err, ErrRotationMismatch)
	_, err = m.ApplyRotationFromHost(model.CoinSalvium, "SC1stale", next)
	assert.ErrorIs(t, err, ErrRotationMismatch)

	rot, err := m.Rotation(model.CoinSalvium)
	require.NoError(t, err)
	assert.Zero(t, rot)

	rot, err = m.ApplyRotationFromHost(model.CoinSalvium, current, next)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rot)

	addr, err := m.Address(model.CoinSalvium)
	require.NoError(t, err)
	assert.Equal(t, next, addr)
}

func TestRecordBalance(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())

	require.NoError(t, m.RecordBalance(model.CoinYadaCoin, 12.5))
	assert.Equal(t, 12.5, m.Balance(model.CoinYadaCoin))

	assert.ErrorIs(t, m.RecordBalance(model.CoinSalvium, math.Inf(1)), ErrInvalidBalance)
	assert.ErrorIs(t, m.RecordBalance(model.Coin("BTC"), 1), ErrUnknownCoin)
}

func TestSign(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())
	require.NoError(t, m.Initialize())
	_, err := m.Rotate(model.CoinYadaCoin)
	require.NoError(t, err)

	_, err = m.Sign(context.Background(), model.CoinSalvium, []byte("tx"))
	assert.ErrorIs(t, err, signer.ErrSigningUnavailable)

	txData := []byte("transfer 1 YDA")
	sig, err := m.Sign(context.Background(), model.CoinYadaCoin, txData)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	m.mu.Lock()
	rec := m.wallet.Keys[model.CoinYadaCoin]
	m.mu.Unlock()
	key, err := address.RotationKey(address.SchemeRotating, model.CoinYadaCoin, rec.PrivateKey, rec.Rotation)
	require.NoError(t, err)

	digest := sha256.Sum256(txData)
	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	require.NoError(t, err)
	assert.True(t, pub.IsEqual(secp256k1.PrivKeyFromBytes(key[:]).PubKey()))
}

func TestExportRequiresTicket(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())
	require.NoError(t, m.Initialize())

	_, err := m.ExportPrivateKey(nil)
	assert.ErrorIs(t, err, ErrExportNotArmed)

	ticket, err := m.ArmExport(model.CoinSalvium)
	require.NoError(t, err)
	assert.Equal(t, model.CoinSalvium, ticket.Coin())

	payload, err := m.ExportPrivateKey(ticket)
	require.NoError(t, err)
	assert.Equal(t, "sal", payload.Tag)
	assert.Len(t, payload.KeyHex, 64)
	assert.True(t, strings.HasSuffix(payload.Encode(), "|0|sal"))
	assert.NotContains(t, payload.String(), payload.KeyHex)

	// One-shot.
	_, err = m.ExportPrivateKey(ticket)
	assert.ErrorIs(t, err, ErrExportNotArmed)
}

func TestExportTicketVoidedByNavigationAndRotation(t *testing.T) {
	m, _ := newTestManager(t, keystore.NewMemRegion())
	require.NoError(t, m.Initialize())

	ticket, err := m.ArmExport(model.CoinYadaCoin)
	require.NoError(t, err)
	m.DisarmExport()
	_, err = m.ExportPrivateKey(ticket)
	assert.ErrorIs(t, err, ErrExportNotArmed)

	ticket, err = m.ArmExport(model.CoinYadaCoin)
	require.NoError(t, err)
	_, err = m.Rotate(model.CoinYadaCoin)
	require.NoError(t, err)
	_, err = m.ExportPrivateKey(ticket)
	assert.ErrorIs(t, err, ErrExportNotArmed)

	first, err := m.ArmExport(model.CoinYadaCoin)
	require.NoError(t, err)
	_, err = m.ArmExport(model.CoinSalvium)
	require.NoError(t, err)
	_, err = m.ExportPrivateKey(first)
	assert.ErrorIs(t, err, ErrExportNotArmed)
}

func TestExportTicketExpires(t *testing.T) {
	m, clock := newTestManager(t, keystore.NewMemRegion())
	require.NoError(t, m.Initialize())

	ticket, err := m.ArmExport(model.CoinYadaCoin)
	require.NoError(t, err)
	clock.now = clock.now.Add(2 * time.Minute)

	_, err = m.ExportPrivateKey(ticket)
	assert.ErrorIs(t, err, ErrExportExpired)
}

func TestRegenerateResetsRotation(t *testing.T) {
	region := keystore.NewMemRegion()
	m, _ := newTestManager(t, region)
	require.NoError(t, m.Initialize())

	before, err := m.Address(model.CoinYadaCoin)
	require.NoError(t, err)
	_, err = m.Rotate(model.CoinYadaCoin)
	require.NoError(t, err)
	require.NoError(t, m.RecordBalance(model.CoinYadaCoin, 3))

	require.NoError(t, m.Regenerate())

	after, err := m.Address(model.CoinYadaCoin)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	rot, err := m.Rotation(model.CoinYadaCoin)
	require.NoError(t, err)
	assert.Zero(t, rot)
	assert.Zero(t, m.Balance(model.CoinYadaCoin))

	stored, err := keystore.New(region).Load()
	require.NoError(t, err)
	assert.Zero(t, stored.Keys[model.CoinYadaCoin].Rotation)
}
