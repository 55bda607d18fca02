package main

import (
	"github.com/AlexZinkM/duo-wallet/internal/handler"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
	"github.com/AlexZinkM/duo-wallet/internal/logging"
	"github.com/AlexZinkM/duo-wallet/internal/protocol"
	"github.com/AlexZinkM/duo-wallet/internal/screen"
	"github.com/AlexZinkM/duo-wallet/internal/transport"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"

	"github.com/btcsuite/btclog"
)

// setupLoggers hands every subsystem its sub-logger and returns the
// daemon's own.
func setupLoggers(root *logging.Root) btclog.Logger {
	keystore.UseLogger(root.Logger(logging.SubsystemKeyStore))
	wallet.UseLogger(root.Logger(logging.SubsystemWallet))
	protocol.UseLogger(root.Logger(logging.SubsystemProtocol))
	transport.UseLogger(root.Logger(logging.SubsystemTransport))
	screen.UseLogger(root.Logger(logging.SubsystemScreen))
	handler.UseLogger(root.Logger(logging.SubsystemHTTP))

	return root.Logger(logging.SubsystemDaemon)
}
