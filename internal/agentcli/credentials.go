package agentcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Credentials is what `agent register` persists so later invocations act as
// the same agent without re-passing flags.
type Credentials struct {
	AgentID   string `json:"agent_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Dir holds credentials.json. Sandboxed runs can pin it to a writable
// directory via GENEHUB_DIR.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("GENEHUB_DIR")); v != "" {
		return v, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".genehub"), nil
}

func CredentialsPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "credentials.json"), nil
}

func LoadCredentials() (Credentials, error) {
	p, err := CredentialsPath()
	if err != nil {
		return Credentials{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return Credentials{}, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return c, nil
}

func SaveCredentials(c Credentials) error {
	d, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d, "credentials.json"), b, 0o600)
}

func (c Credentials) ExpiresAtTime() (time.Time, bool) {
	v := strings.TrimSpace(c.ExpiresAt)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
