package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadOrCreateSecret returns the signing secret. A non-empty fromEnv wins;
// otherwise the secret is read from path, and generated and written there
// (mode 0600) on first start so tokens survive restarts.
func LoadOrCreateSecret(fromEnv, path string) ([]byte, error) {
	if fromEnv != "" {
		return []byte(fromEnv), nil
	}
	if path == "" {
		return nil, errors.New("auth: no secret and no secret file configured")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if s := strings.TrimSpace(string(data)); s != "" {
			return []byte(s), nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read secret file: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		return nil, fmt.Errorf("write secret file: %w", err)
	}
	return []byte(secret), nil
}
