package proxyauth

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// StoredToken is the serialized form of a backend credential.
type StoredToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Marshal serializes the token for a TokenStore.
func (t *StoredToken) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalStoredToken parses a token previously written by Marshal.
func UnmarshalStoredToken(data []byte) (*StoredToken, error) {
	tok := &StoredToken{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("corrupted stored token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("stored token has no access token")
	}
	return tok, nil
}

// OAuth2 converts the stored token to the oauth2 representation used by
// gRPC per-RPC credentials.
func (t *StoredToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

// Valid reports whether the token exists and has not expired.
func (t *StoredToken) Valid() bool {
	if t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return time.Now().Before(t.Expiry)
}
