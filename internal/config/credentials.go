package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Credentials holds the connection parameters for the identity/store
// provider, loaded from a JSON file so projects can be switched without
// rebuilding.
type Credentials struct {
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	StorageBucket     string `json:"storageBucket,omitempty"`
	MessagingSenderID string `json:"messagingSenderId,omitempty"`
	AppID             string `json:"appId,omitempty"`
}

// LoadCredentials reads and validates the credentials file. A missing file or
// a missing required key is a fatal startup condition for the caller.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	required := []struct {
		key string
		val string
	}{
		{"apiKey", creds.APIKey},
		{"authDomain", creds.AuthDomain},
		{"projectId", creds.ProjectID},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields in %s: %s", path, strings.Join(missing, ", "))
	}

	return &creds, nil
}
