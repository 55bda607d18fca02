// walletd runs the wallet device: key store, screen and the host link.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/address"
	"github.com/AlexZinkM/duo-wallet/internal/api"
	"github.com/AlexZinkM/duo-wallet/internal/config"
	"github.com/AlexZinkM/duo-wallet/internal/crypto"
	"github.com/AlexZinkM/duo-wallet/internal/handler"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
	"github.com/AlexZinkM/duo-wallet/internal/logging"
	"github.com/AlexZinkM/duo-wallet/internal/model"
	"github.com/AlexZinkM/duo-wallet/internal/protocol"
	"github.com/AlexZinkM/duo-wallet/internal/screen"
	"github.com/AlexZinkM/duo-wallet/internal/signer"
	"github.com/AlexZinkM/duo-wallet/internal/transport"
	"github.com/AlexZinkM/duo-wallet/internal/wallet"

	"github.com/btcsuite/btclog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[walletd] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(); err != nil {
		_ = config.Usage()
		return err
	}
	cfg := config.Get()

	logs, err := logging.New(cfg.LogFile, cfg.LogMaxSizeKB, cfg.LogMaxFiles)
	if err != nil {
		return err
	}
	defer logs.Close()
	if err := logs.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	log := setupLoggers(logs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region, err := openRegion(cfg)
	if err != nil {
		return err
	}
	store := keystore.New(region)
	defer store.Close()

	scheme, err := address.ParseScheme(cfg.Derivation)
	if err != nil {
		return err
	}
	signers, err := buildSigners(cfg)
	if err != nil {
		return err
	}

	mgr := wallet.NewManager(wallet.Config{
		Store:         store,
		Scheme:        scheme,
		Signers:       signers,
		ExportTimeout: cfg.ExportAckTimeout,
	})
	defer mgr.Close()

	// A failed initialization leaves the wallet faulted. The daemon keeps
	// running so the screen and GET_STATUS can report it.
	if err := mgr.Initialize(); err != nil {
		log.Errorf("Wallet unavailable: %v", err)
	}

	link, err := transport.Open(cfg.Link)
	if err != nil {
		return err
	}

	// With a stdio link stdout carries the protocol, so the screen goes to
	// stderr.
	var screenOut io.Writer = os.Stdout
	if cfg.Link == "stdio" {
		screenOut = os.Stderr
	}
	nav := screen.NewNavigator(screen.Config{
		Wallet:   mgr,
		Display:  screen.NewConsoleDisplay(screenOut),
		QR:       screen.NewQREncoder(),
		DeviceID: cfg.DeviceID,
		Touch:    cfg.Touch,
	})
	if err := nav.Start(); err != nil {
		return fmt.Errorf("failed to draw screen: %w", err)
	}

	proto := protocol.NewHandler(protocol.Config{
		Wallet:   mgr,
		Notifier: nav,
		Screen:   nav,
		DeviceID: cfg.DeviceID,
		Touch:    cfg.Touch,
	})
	loop := transport.NewLoop(proto, nav)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = loop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := loop.Serve(ctx, link); err != nil {
			log.Errorf("Link failed: %v", err)
			stop()
		}
	}()

	if cfg.LocalInput && cfg.Link != "stdio" {
		go readLocalInput(ctx, log, loop, os.Stdin)
	}

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		device := handler.NewDeviceHandler(loop, mgr, nav, cfg.DeviceID, cfg.Touch)
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.SetupRouter(device),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("HTTP bridge listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("HTTP bridge failed: %v", err)
				stop()
			}
		}()
	}

	log.Infof("Hardware wallet ready (device=%s, link=%s)", cfg.DeviceID, cfg.Link)
	<-ctx.Done()
	log.Infof("Shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	wg.Wait()
	return nil
}

func openRegion(cfg *config.Config) (keystore.Region, error) {
	var (
		region keystore.Region
		err    error
	)
	switch cfg.StoreBackend {
	case config.BackendFile:
		region, err = keystore.NewFileRegion(cfg.StorePath)
	case config.BackendBolt:
		region, err = keystore.OpenBoltRegion(cfg.StorePath)
	case config.BackendMemory:
		region = keystore.NewMemRegion()
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil || !cfg.StoreSealed {
		return region, err
	}

	if err := config.PromptForPassword(); err != nil {
		_ = region.Close()
		return nil, err
	}
	password, err := config.GetStorePasswordBytes()
	config.ClearPassword()
	if err != nil {
		_ = region.Close()
		return nil, err
	}
	defer clear(password)

	return keystore.NewSealedRegion(region, password, crypto.DefaultParams), nil
}

func buildSigners(cfg *config.Config) (map[model.Coin]signer.Signer, error) {
	names := map[model.Coin]string{
		model.CoinYadaCoin: cfg.SignerYDA,
		model.CoinSalvium:  cfg.SignerSAL,
	}

	signers := make(map[model.Coin]signer.Signer, len(names))
	for coin, name := range names {
		s, err := signer.New(name)
		if err != nil {
			return nil, fmt.Errorf("signer for %s: %w", coin, err)
		}
		signers[coin] = s
	}
	return signers, nil
}

// readLocalInput turns console words into screen input, standing in for
// the touch panel and the boot button.
func readLocalInput(ctx context.Context, log btclog.Logger, loop *transport.Loop, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		ev, err := screen.ParseEvent(sc.Text())
		if err != nil {
			log.Warnf("Ignoring input: %v", err)
			continue
		}
		if err := loop.Input(ctx, ev); err != nil {
			return
		}
	}
}
