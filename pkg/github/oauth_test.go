package github

import (
	"testing"
)

func TestDeviceAuth_MissingClientID(t *testing.T) {
	cfg := OAuthConfig{
		ClientID: "", // Missing client ID
	}

	_, err := DeviceAuth(t.Context(), cfg, nil)
	if err == nil {
		t.Error("DeviceAuth with empty client ID should return error")
	}
}

func TestOAuthDefaults(t *testing.T) {
	if DefaultGitHubHost != "https://github.com" {
		t.Errorf("DefaultGitHubHost = %s, want https://github.com", DefaultGitHubHost)
	}

	// Submitting reviews requires the repo scope
	if DefaultScopes != "repo" {
		t.Errorf("DefaultScopes = %s, want repo", DefaultScopes)
	}
}
