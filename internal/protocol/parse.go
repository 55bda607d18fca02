// Package protocol implements the line oriented host command protocol.
//
// Every command is one line. Fields are separated by ':'; the last field
// of a command takes the rest of the line, so it may contain ':' itself.
// Lines that do not parse are dropped without a response.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

var (
	// ErrMalformed is returned for a known command with missing or
	// invalid fields
	ErrMalformed = errors.New("malformed command")

	// ErrUnknownCommand is returned for lines that name no command
	ErrUnknownCommand = errors.New("unknown command")
)

// Command names, as sent on the wire
const (
	CmdBalance      = "BALANCE"
	CmdGetAddresses = "GET_ADDRESSES"
	CmdPing         = "PING"
	CmdGetStatus    = "GET_STATUS"
	CmdRotateKey    = "ROTATE_KEY"
	CmdSignTx       = "SIGN_TX"

	CmdGetNextAddress = "GET_NEXT_ADDRESS"
)

// fieldCount is the number of fields after the command name. Commands
// with zero fields must match the whole line.
var fieldCount = map[string]int{
	CmdBalance:      2,
	CmdGetAddresses: 0,
	CmdPing:         0,
	CmdGetStatus:    0,
	CmdRotateKey:    3,
	CmdSignTx:       2,

	CmdGetNextAddress: 1,
}

// Command is a parsed command line
type Command struct {
	Name string

	// Coin is set for commands addressed to a coin
	Coin model.Coin

	// Args are the fields after the coin
	Args []string
}

// Parse parses one trimmed command line
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	name, rest, hasFields := strings.Cut(line, ":")
	n, ok := fieldCount[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, truncate(name, 32))
	}

	if n == 0 {
		if hasFields {
			return Command{}, fmt.Errorf("%w: %s takes no fields", ErrMalformed, name)
		}
		return Command{Name: name}, nil
	}
	if !hasFields {
		return Command{}, fmt.Errorf("%w: %s needs %d fields", ErrMalformed, name, n)
	}

	fields := strings.SplitN(rest, ":", n)
	if len(fields) != n {
		return Command{}, fmt.Errorf("%w: %s needs %d fields, got %d", ErrMalformed, name, n, len(fields))
	}

	coin := model.Coin(fields[0])
	if !coin.Valid() {
		return Command{}, fmt.Errorf("%w: unsupported coin %q", ErrMalformed, truncate(fields[0], 8))
	}

	return Command{Name: name, Coin: coin, Args: fields[1:]}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
