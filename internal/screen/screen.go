// Package screen is the on-device UI state: which screen is visible, how
// local input moves between screens, and the export warning gate.
package screen

import (
	"fmt"

	"github.com/AlexZinkM/duo-wallet/internal/model"
)

// ID identifies a screen. The numbering is reported by GET_STATUS and must
// stay stable for host compatibility.
type ID int

const (
	Splash ID = iota
	Menu
	YadaCoin
	YadaCoinReceive
	YadaCoinSend
	Salvium
	SalviumReceive
	SalviumSend
	Export
	Settings
	ExportWarning
)

var names = map[ID]string{
	Splash:          "splash",
	Menu:            "menu",
	YadaCoin:        "yadacoin",
	YadaCoinReceive: "yadacoin-receive",
	YadaCoinSend:    "yadacoin-send",
	Salvium:         "salvium",
	SalviumReceive:  "salvium-receive",
	SalviumSend:     "salvium-send",
	Export:          "export",
	Settings:        "settings",
	ExportWarning:   "export-warning",
}

func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("screen(%d)", int(id))
}

// menuItems are the entries of the main menu, in display order
var menuItems = []ID{YadaCoin, Salvium, Settings}

type coinScreens struct {
	home    ID
	receive ID
	send    ID
}

var byCoin = map[model.Coin]coinScreens{
	model.CoinYadaCoin: {home: YadaCoin, receive: YadaCoinReceive, send: YadaCoinSend},
	model.CoinSalvium:  {home: Salvium, receive: SalviumReceive, send: SalviumSend},
}

// coinOf returns the coin a coin screen belongs to
func coinOf(id ID) (model.Coin, bool) {
	for coin, s := range byCoin {
		if id == s.home || id == s.receive || id == s.send {
			return coin, true
		}
	}
	return "", false
}

// children lists the screens reachable by a direct selection
var children = map[ID][]ID{
	Menu:     menuItems,
	YadaCoin: {YadaCoinReceive, YadaCoinSend},
	Salvium:  {SalviumReceive, SalviumSend},
}

func canSelect(from, to ID) bool {
	for _, id := range children[from] {
		if id == to {
			return true
		}
	}
	return false
}
