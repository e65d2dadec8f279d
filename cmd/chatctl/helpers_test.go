package main

import (
	"testing"

	"github.com/verity-ai/chatstream-go/pkg/config"
)

// writeSettings saves a minimal settings file pointing the provider at a test
// server.
func writeSettings(t *testing.T, path, providerID, baseURL string) {
	t.Helper()
	st := &config.Settings{
		Provider:    providerID,
		Credentials: map[string]string{providerID: "test-key"},
		BaseURLs:    map[string]string{providerID: baseURL},
	}
	if err := st.Save(path); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}
