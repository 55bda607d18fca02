package model

import (
	"fmt"
	"strings"
)

// Coin identifies a supported coin by its protocol tag
type Coin string

const (
	CoinYadaCoin Coin = "YDA"
	CoinSalvium  Coin = "SAL"
)

// CoinInfo describes how a coin is named, addressed and exported
type CoinInfo struct {
	Coin          Coin
	Name          string
	AddressPrefix string // 3 characters, prepended to every derived address
	ExportTag     string // last field of the export payload
}

var coinInfos = map[Coin]CoinInfo{
	CoinYadaCoin: {Coin: CoinYadaCoin, Name: "YadaCoin", AddressPrefix: "YDA", ExportTag: "yda"},
	CoinSalvium:  {Coin: CoinSalvium, Name: "Salvium", AddressPrefix: "SC1", ExportTag: "sal"},
}

// Coins returns all supported coins in protocol order
func Coins() []Coin {
	return []Coin{CoinYadaCoin, CoinSalvium}
}

// Info returns coin metadata. ok is false for unsupported coins.
func (c Coin) Info() (CoinInfo, bool) {
	info, ok := coinInfos[c]
	return info, ok
}

// Valid reports whether c is a supported coin
func (c Coin) Valid() bool {
	_, ok := coinInfos[c]
	return ok
}

// Name returns the display name, or the raw tag for unknown coins
func (c Coin) Name() string {
	if info, ok := coinInfos[c]; ok {
		return info.Name
	}
	return string(c)
}

// ParseCoin parses a protocol coin tag. Tags are case-sensitive on the wire,
// lower case export tags are accepted as well.
func ParseCoin(s string) (Coin, error) {
	c := Coin(s)
	if c.Valid() {
		return c, nil
	}
	for _, info := range coinInfos {
		if info.ExportTag == strings.TrimSpace(s) {
			return info.Coin, nil
		}
	}
	return "", fmt.Errorf("unsupported coin %q", s)
}
