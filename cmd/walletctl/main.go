// walletctl is the host side companion of walletd. It speaks the line
// protocol over the device link, or goes through the HTTP bridge.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/client"

	"github.com/urfave/cli"
)

const defaultLink = "127.0.0.1:7070"

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[walletctl] %v\n", err)
	os.Exit(1)
}

// commander is what every command needs: a way to run protocol lines
type commander interface {
	client.Commander
	Close() error
}

type bridgeCommander struct {
	*client.BridgeClient
}

func (bridgeCommander) Close() error { return nil }

func getClient(ctx *cli.Context) (commander, error) {
	if url := ctx.GlobalString("http"); url != "" {
		return bridgeCommander{client.NewBridgeClient(url)}, nil
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := client.Dial(dialCtx, ctx.GlobalString("link"), ctx.GlobalDuration("idle"))
	if err != nil {
		return nil, fmt.Errorf("unable to reach device: %w", err)
	}
	return conn, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "walletctl"
	app.Usage = "talk to a dual-coin wallet device"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "link",
			Value:  defaultLink,
			Usage:  "The host:port of the device link.",
			EnvVar: "WALLETCTL_LINK",
		},
		cli.StringFlag{
			Name: "http",
			Usage: "Base URL of the device HTTP bridge, e.g. " +
				"http://127.0.0.1:8080. Overrides --link.",
			EnvVar: "WALLETCTL_HTTP",
		},
		cli.DurationFlag{
			Name:  "idle",
			Value: client.DefaultIdleTimeout,
			Usage: "How long to wait for further response lines.",
		},
	}
	app.Commands = []cli.Command{
		pingCommand,
		statusCommand,
		addressesCommand,
		balanceCommand,
		rotateCommand,
		signCommand,
		rawCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
