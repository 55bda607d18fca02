package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// ParseEvent parses a local input word, as typed on the emulator console:
//
//	select <screen id>   back   button   hold
//	export <coin>        confirm   next   reset
func ParseEvent(text string) (Event, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return Event{}, fmt.Errorf("%w: empty input", ErrInvalidTransition)
	}

	word, args := fields[0], fields[1:]
	needArg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %s needs one argument", ErrInvalidTransition, word)
		}
		return args[0], nil
	}

	switch word {
	case "select", "s":
		arg, err := needArg()
		if err != nil {
			return Event{}, err
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Event{}, fmt.Errorf("%w: bad screen id %q", ErrInvalidTransition, arg)
		}
		return Event{Action: ActionSelect, Target: ID(n)}, nil
	case "back", "b":
		return Event{Action: ActionBack}, nil
	case "button":
		return Event{Action: ActionButton}, nil
	case "hold":
		return Event{Action: ActionButtonHold}, nil
	case "export":
		arg, err := needArg()
		if err != nil {
			return Event{}, err
		}
		coin, err := model.ParseCoin(strings.ToUpper(arg))
		if err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return Event{Action: ActionRequestExport, Coin: coin}, nil
	case "confirm":
		return Event{Action: ActionConfirmExport}, nil
	case "next":
		return Event{Action: ActionNextKey}, nil
	case "reset":
		return Event{Action: ActionResetWallet}, nil
	}
	return Event{}, fmt.Errorf("%w: unknown input %q", ErrInvalidTransition, word)
}
