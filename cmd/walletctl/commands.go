package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlexZinkM/duo-wallet/internal/client"
	"github.com/AlexZinkM/duo-wallet/internal/common"
	"github.com/AlexZinkM/duo-wallet/internal/model"

	"github.com/urfave/cli"
)

const commandTimeout = 30 * time.Second

// withClient runs fn with a connected client and prints its response lines
func withClient(ctx *cli.Context, fn func(context.Context, client.Commander) ([]string, error)) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	cmdCtx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	lines, err := fn(cmdCtx, c)
	for _, line := range lines {
		fmt.Println(line)
	}
	return err
}

func send(line string) func(context.Context, client.Commander) ([]string, error) {
	return func(ctx context.Context, c client.Commander) ([]string, error) {
		resp, err := c.Command(ctx, line)
		if err == nil && len(resp) == 0 {
			err = errors.New("device dropped the command")
		}
		return resp, err
	}
}

func parseCoin(ctx *cli.Context, idx int) (model.Coin, error) {
	coin, err := model.ParseCoin(strings.ToUpper(ctx.Args().Get(idx)))
	if err != nil {
		return "", err
	}
	return coin, nil
}

var pingCommand = cli.Command{
	Name:   "ping",
	Usage:  "Check the device is alive.",
	Action: ping,
}

func ping(ctx *cli.Context) error {
	return withClient(ctx, send("PING"))
}

var statusCommand = cli.Command{
	Name:   "status",
	Usage:  "Show device status.",
	Action: status,
}

func status(ctx *cli.Context) error {
	return withClient(ctx, send("GET_STATUS"))
}

var addressesCommand = cli.Command{
	Name:   "addresses",
	Usage:  "List the current address of every coin.",
	Action: addresses,
}

func addresses(ctx *cli.Context) error {
	return withClient(ctx, func(cmdCtx context.Context, c client.Commander) ([]string, error) {
		resp, err := c.Command(cmdCtx, "GET_ADDRESSES")
		if err != nil {
			return nil, err
		}
		entries, err := client.ParseAddresses(resp)
		if err != nil {
			return resp, err
		}
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = fmt.Sprintf("%-8s %s", e.Coin.Name(), e.Address)
		}
		return lines, nil
	})
}

var balanceCommand = cli.Command{
	Name:      "balance",
	Usage:     "Push a display balance to the device.",
	ArgsUsage: "COIN AMOUNT",
	Action:    balance,
}

func balance(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "balance")
	}
	coin, err := parseCoin(ctx, 0)
	if err != nil {
		return err
	}
	amount, err := common.ParseBalance(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	return withClient(ctx, send(fmt.Sprintf("BALANCE:%s:%s", coin, common.FormatBalance(amount))))
}

var rotateCommand = cli.Command{
	Name:  "rotate",
	Usage: "Rotate a coin's address.",
	Description: `
	Without OLD and NEW the current and next address are read from the
	device first. The device rotates only if OLD is its current address
	and NEW is the address it derives itself for the next rotation index.`,
	ArgsUsage: "COIN [OLD NEW]",
	Action:    rotate,
}

func rotate(ctx *cli.Context) error {
	if ctx.NArg() != 1 && ctx.NArg() != 3 {
		return cli.ShowCommandHelp(ctx, "rotate")
	}
	coin, err := parseCoin(ctx, 0)
	if err != nil {
		return err
	}

	return withClient(ctx, func(cmdCtx context.Context, c client.Commander) ([]string, error) {
		oldAddr, newAddr := ctx.Args().Get(1), ctx.Args().Get(2)
		if ctx.NArg() == 1 {
			oldAddr, newAddr, err = client.RotateNext(cmdCtx, c, coin)
		} else {
			err = client.Rotate(cmdCtx, c, coin, oldAddr, newAddr)
		}
		if err != nil {
			return nil, err
		}
		return []string{
			fmt.Sprintf("%s rotated", coin.Name()),
			"old: " + oldAddr,
			"new: " + newAddr,
		}, nil
	})
}

var signCommand = cli.Command{
	Name:      "sign",
	Usage:     "Ask the device to sign transaction data.",
	ArgsUsage: "COIN DATA",
	Action:    sign,
}

func sign(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "sign")
	}
	coin, err := parseCoin(ctx, 0)
	if err != nil {
		return err
	}
	return withClient(ctx, send(fmt.Sprintf("SIGN_TX:%s:%s", coin, ctx.Args().Get(1))))
}

var rawCommand = cli.Command{
	Name:      "raw",
	Usage:     "Send a raw protocol line.",
	ArgsUsage: "LINE",
	Action:    raw,
}

func raw(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "raw")
	}
	line := strings.Join(ctx.Args(), " ")
	return withClient(ctx, func(cmdCtx context.Context, c client.Commander) ([]string, error) {
		return c.Command(cmdCtx, line)
	})
}
