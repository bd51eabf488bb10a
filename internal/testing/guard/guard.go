// Package guard switches the process into test mode when imported, so that
// binaries exercised from tests never open stores, Redis or listeners.
package guard

import (
	"os"
	"sync"
)

// Env is the variable consulted by app.InTestMode.
const Env = "ODYSSEY_TEST_MODE"

var once sync.Once

func init() {
	Enable()
}

// Enable sets the test-mode flag and points external services at addresses
// that fail fast. Values already present in the environment win.
func Enable() {
	once.Do(func() {
		setDefault(Env, "1")
		setDefault("STORE_DRIVER", "mock")
		setDefault("GOTENBERG_URL", "http://127.0.0.1:0")
	})
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}
