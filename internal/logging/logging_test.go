package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubLoggersShareBackend(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter(&buf)

	wallet := root.Logger(SubsystemWallet)
	require.Same(t, wallet, root.Logger(SubsystemWallet))

	require.NoError(t, root.SetLevel("debug"))
	wallet.Debugf("rotation %d", 3)
	root.Logger(SubsystemProtocol).Infof("ping")

	out := buf.String()
	require.Contains(t, out, "WALT: rotation 3")
	require.Contains(t, out, "PROT: ping")
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithWriter(&buf)
	l := root.Logger(SubsystemKeyStore)

	require.NoError(t, root.SetLevel("error"))
	l.Infof("hidden")
	require.Empty(t, buf.String())

	require.Error(t, root.SetLevel("loud"))
}

func TestRotatingFile(t *testing.T) {
	root, err := New(filepath.Join(t.TempDir(), "logs", "walletd.log"), 64, 2)
	require.NoError(t, err)
	root.Logger(SubsystemDaemon).Infof("started")
	require.NoError(t, root.Close())
}
