package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the wallet daemon.
// Variables are read with the WALLET_ prefix, e.g. WALLET_STORE_PATH.
// Note: the store password is prompted at runtime - use GetStorePasswordBytes()
type Config struct {
	DeviceID string `envconfig:"DEVICE_ID" default:"ESP32-2432S028"`
	Touch    bool   `envconfig:"TOUCH" default:"false"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	StorePath    string `envconfig:"STORE_PATH" default:"wallet.eeprom"`
	StoreSealed  bool   `envconfig:"STORE_SEALED" default:"false"`

	Derivation string `envconfig:"DERIVATION" default:"rotating"`
	SignerYDA  string `envconfig:"SIGNER_YDA" default:"secp256k1"`
	SignerSAL  string `envconfig:"SIGNER_SAL" default:"none"`

	Link       string `envconfig:"LINK" default:"tcp://127.0.0.1:7070"`
	HTTPAddr   string `envconfig:"HTTP_ADDR"`
	LocalInput bool   `envconfig:"LOCAL_INPUT" default:"true"`

	ExportAckTimeout time.Duration `envconfig:"EXPORT_ACK_TIMEOUT" default:"2m"`

	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile      string `envconfig:"LOG_FILE"`
	LogMaxSizeKB int    `envconfig:"LOG_MAX_SIZE_KB" default:"10240"`
	LogMaxFiles  int    `envconfig:"LOG_MAX_FILES" default:"3"`
}

// Prefix is the environment variable prefix
const Prefix = "WALLET"

// Store backends
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c := &Config{}
	if err := envconfig.Process(Prefix, c); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c
	return nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendBolt:
		if c.StorePath == "" {
			return errors.New("STORE_PATH is required for the " + c.StoreBackend + " backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.ExportAckTimeout <= 0 {
		return errors.New("EXPORT_ACK_TIMEOUT must be positive")
	}
	if c.Link == "" {
		return errors.New("LINK is required")
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// Usage prints the supported environment variables
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}

var passwordBytes []byte

// PromptForPassword prompts the user for the store password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the wallet is loaded.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the daemon interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter store password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	SetPassword(raw)
	clear(raw)
	return nil
}

// SetPassword stores a copy of password in memory
func SetPassword(password []byte) {
	clear(passwordBytes)
	passwordBytes = make([]byte, len(password))
	copy(passwordBytes, password)
}

// GetStorePasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetStorePasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}

// ClearPassword wipes the stored password
func ClearPassword() {
	clear(passwordBytes)
	passwordBytes = nil
}
