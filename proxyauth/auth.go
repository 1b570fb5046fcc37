package proxyauth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cli/browser"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/metadata"
)

// TokenSource returns an oauth2.TokenSource backed by the store, suitable
// for gRPC per-RPC credentials. The token is re-read on every call so a
// re-login takes effect without restarting the proxy.
func TokenSource(store TokenStore) oauth2.TokenSource {
	return &storeTokenSource{store: store}
}

type storeTokenSource struct {
	store TokenStore
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	data, err := s.store.Load(context.Background())
	if err != nil {
		return nil, err
	}
	tok, err := UnmarshalStoredToken(data)
	if err != nil {
		return nil, err
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("stored backend token expired; run auth login again")
	}
	return tok.OAuth2(), nil
}

// DecorateContext appends a bearer token from the store to the outgoing
// gRPC metadata. The context is returned unchanged when no credential is
// stored, so unauthenticated backends keep working.
func DecorateContext(ctx context.Context, store TokenStore) context.Context {
	data, err := store.Load(ctx)
	if err != nil {
		return ctx
	}
	tok, err := UnmarshalStoredToken(data)
	if err != nil || !tok.Valid() {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok.AccessToken)
}

// Login runs the interactive login flow: it opens the backend's
// authorization URL in the user's browser, reads the issued token from in,
// and persists it. A ttl of zero stores a non-expiring token.
func Login(ctx context.Context, authURL string, in io.Reader, out io.Writer, store TokenStore, ttl time.Duration) error {
	if authURL != "" {
		fmt.Fprintf(out, "Opening %s in your browser...\n", authURL)
		if err := browser.OpenURL(authURL); err != nil {
			fmt.Fprintf(out, "Could not open a browser; visit the URL manually.\n")
		}
	}
	fmt.Fprint(out, "Paste the issued token: ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return errors.New("no token provided")
	}
	return SaveToken(ctx, store, token, ttl)
}

// SaveToken persists a raw access token, with an optional expiry.
func SaveToken(ctx context.Context, store TokenStore, accessToken string, ttl time.Duration) error {
	tok := &StoredToken{AccessToken: accessToken}
	if ttl != 0 {
		tok.Expiry = time.Now().Add(ttl)
	}
	data, err := tok.Marshal()
	if err != nil {
		return err
	}
	return store.Save(ctx, data)
}

// Status describes the stored credential in one line.
func Status(ctx context.Context, store TokenStore) (string, error) {
	data, err := store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return "Not authenticated.", nil
	}
	if err != nil {
		return "", err
	}
	tok, err := UnmarshalStoredToken(data)
	if err != nil {
		return "Stored credential is corrupted; run auth login again.", nil
	}
	if !tok.Valid() {
		return fmt.Sprintf("Token expired at %s.", tok.Expiry.Format(time.RFC3339)), nil
	}
	if tok.Expiry.IsZero() {
		return "Authenticated (token does not expire).", nil
	}
	return fmt.Sprintf("Authenticated until %s.", tok.Expiry.Format(time.RFC3339)), nil
}
