package model

// CommandRequest represents request for POST /device/command
type CommandRequest struct {
	Line string `json:"line" binding:"required"`
}

// CommandResponse represents response for POST /device/command.
// Responses is empty when the device dropped the line.
type CommandResponse struct {
	Responses []string `json:"responses"`
}

// AddressEntry is one coin address with its QR code
type AddressEntry struct {
	Coin     Coin   `json:"coin"`
	Address  string `json:"address"`
	Rotation uint32 `json:"rotation"`
	QR       string `json:"QR,omitempty"` // base64 PNG
}

// AddressesResponse represents response for GET /device/addresses
type AddressesResponse struct {
	Addresses []AddressEntry `json:"addresses"`
}

// StatusResponse represents response for GET /device/status
type StatusResponse struct {
	Ready    bool           `json:"ready"`
	DeviceID string         `json:"deviceId"`
	Touch    bool           `json:"touch"`
	Screen   int            `json:"screen"`
	Wallet   WalletSnapshot `json:"wallet"`
}

// ErrorResponse is returned by every bridge endpoint on failure. Code is a
// short machine readable reason such as not_ready or device_busy.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
