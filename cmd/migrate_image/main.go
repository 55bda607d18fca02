// migrate_image converts a wallet region image between layouts. By default
// it reads a raw image (legacy firmware dump or typed record) and writes it
// as a typed record into a file or bolt store, optionally sealed.
// With -downgrade it writes the legacy fixed-offset layout instead.
// Usage: go run ./cmd/migrate_image -in dump.bin -out wallet.db -backend bolt
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/AlexZinkM/duo-wallet/internal/config"
	"github.com/AlexZinkM/duo-wallet/internal/crypto"
	"github.com/AlexZinkM/duo-wallet/internal/keystore"
)

func main() {
	in := flag.String("in", "", "raw region image to read")
	out := flag.String("out", "", "destination path")
	backend := flag.String("backend", config.BackendFile, "destination backend: file or bolt")
	sealed := flag.Bool("sealed", false, "seal the destination with a password")
	downgrade := flag.Bool("downgrade", false, "write a raw legacy image to -out instead")
	flag.Parse()

	if err := run(*in, *out, *backend, *sealed, *downgrade); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in, out, backend string, sealed, downgrade bool) error {
	if in == "" || out == "" {
		return errors.New("both -in and -out are required")
	}

	image, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	defer clear(image)

	state, err := keystore.DecodeImage(image)
	if err != nil {
		return err
	}
	defer state.Wipe()

	if downgrade {
		legacy, err := keystore.EncodeLegacy(state)
		if err != nil {
			return err
		}
		defer clear(legacy)
		return os.WriteFile(out, legacy, 0o600)
	}

	var region keystore.Region
	switch backend {
	case config.BackendFile:
		region, err = keystore.NewFileRegion(out)
	case config.BackendBolt:
		region, err = keystore.OpenBoltRegion(out)
	default:
		err = fmt.Errorf("unknown backend %q", backend)
	}
	if err != nil {
		return err
	}

	if sealed {
		if err := config.PromptForPassword(); err != nil {
			_ = region.Close()
			return err
		}
		password, err := config.GetStorePasswordBytes()
		config.ClearPassword()
		if err != nil {
			_ = region.Close()
			return err
		}
		defer clear(password)
		region = keystore.NewSealedRegion(region, password, crypto.DefaultParams)
	}

	store := keystore.New(region)
	defer store.Close()

	if err := store.Save(state); err != nil {
		return err
	}
	fmt.Printf("migrated %d keys (scheme %d) to %s\n", len(state.Keys), state.Scheme, out)
	return nil
}
