package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// BigQuery OAuth2 scopes.
var bigqueryScopes = []string{
	"https://www.googleapis.com/auth/bigquery.readonly",
}

// OAuthClientConfig holds the OAuth2 client ID and secret.
type OAuthClientConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// tokenCacheDir returns the directory for caching OAuth tokens and config.
func tokenCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".dbdeck")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// oauthClientConfigPath returns the path to the saved OAuth client configuration.
func oauthClientConfigPath() (string, error) {
	dir, err := tokenCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "oauth-client.json"), nil
}

// SaveOAuthClientConfig saves the OAuth client ID/secret to disk.
func SaveOAuthClientConfig(cfg OAuthClientConfig) error {
	path, err := oauthClientConfigPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadOAuthClientConfig loads the saved OAuth client configuration.
func LoadOAuthClientConfig() (*OAuthClientConfig, error) {
	path, err := oauthClientConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg OAuthClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// tokenCachePath returns the path to the cached token for a project.
func tokenCachePath(project string) (string, error) {
	dir, err := tokenCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("token-%s.json", project)), nil
}

// SaveCachedToken persists an OAuth token for a project.
func SaveCachedToken(project string, tok *oauth2.Token) error {
	path, err := tokenCachePath(project)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// loadCachedTokenSource returns a token source backed by the cached token for
// a project. The source refreshes expired tokens using the saved client
// config.
func loadCachedTokenSource(project string) (oauth2.TokenSource, error) {
	path, err := tokenCachePath(project)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing cached token: %w", err)
	}

	cfg, err := LoadOAuthClientConfig()
	if err != nil {
		// No client config means no refresh; use the token as-is.
		return oauth2.StaticTokenSource(&tok), nil
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       bigqueryScopes,
	}
	return oc.TokenSource(context.Background(), &tok), nil
}
