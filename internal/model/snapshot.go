package model

// CoinSnapshot is the UI visible state of one coin. It never carries key material.
type CoinSnapshot struct {
	Coin     Coin    `json:"coin"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Rotation uint32  `json:"rotation"`
	Balance  float64 `json:"balance"`
}

// WalletSnapshot is a read-only copy of the wallet for rendering and status
type WalletSnapshot struct {
	State  string         `json:"state"`
	Scheme string         `json:"scheme"`
	Coins  []CoinSnapshot `json:"coins"`
	Fault  string         `json:"fault,omitempty"`
}

// Coin returns the snapshot for coin, if present
func (s WalletSnapshot) Coin(coin Coin) (CoinSnapshot, bool) {
	for _, c := range s.Coins {
		if c.Coin == coin {
			return c, true
		}
	}
	return CoinSnapshot{}, false
}
