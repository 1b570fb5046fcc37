package proxyauth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/drewfead/transcode/proxyauth"
)

func TestUnit_StoredToken_MarshalRoundTrip(t *testing.T) {
	tok := &proxyauth.StoredToken{
		AccessToken:  "abc",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	data, err := tok.Marshal()
	require.NoError(t, err)

	got, err := proxyauth.UnmarshalStoredToken(data)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestUnit_StoredToken_Invalid(t *testing.T) {
	_, err := proxyauth.UnmarshalStoredToken([]byte("{not json"))
	assert.Error(t, err)

	_, err = proxyauth.UnmarshalStoredToken([]byte(`{"refresh_token":"only"}`))
	assert.Error(t, err)
}

func TestUnit_StoredToken_Valid(t *testing.T) {
	assert.True(t, (&proxyauth.StoredToken{AccessToken: "x"}).Valid())
	assert.True(t, (&proxyauth.StoredToken{AccessToken: "x", Expiry: time.Now().Add(time.Minute)}).Valid())
	assert.False(t, (&proxyauth.StoredToken{AccessToken: "x", Expiry: time.Now().Add(-time.Minute)}).Valid())
	assert.False(t, (&proxyauth.StoredToken{}).Valid())
}

func TestUnit_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := &proxyauth.MemoryStore{}

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, proxyauth.ErrNotFound)

	require.NoError(t, store.Save(ctx, []byte("tok")))
	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(data))

	require.NoError(t, store.Delete(ctx))
	assert.ErrorIs(t, store.Delete(ctx), proxyauth.ErrNotFound)
}

func TestUnit_SaveTokenAndStatus(t *testing.T) {
	ctx := context.Background()
	store := &proxyauth.MemoryStore{}

	msg, err := proxyauth.Status(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "Not authenticated.", msg)

	require.NoError(t, proxyauth.SaveToken(ctx, store, "abc", 0))
	msg, err = proxyauth.Status(ctx, store)
	require.NoError(t, err)
	assert.Contains(t, msg, "does not expire")

	require.NoError(t, proxyauth.SaveToken(ctx, store, "abc", -time.Minute))
	msg, err = proxyauth.Status(ctx, store)
	require.NoError(t, err)
	assert.Contains(t, msg, "expired")
}

func TestUnit_DecorateContext(t *testing.T) {
	ctx := context.Background()
	store := &proxyauth.MemoryStore{}

	t.Run("no credential leaves context untouched", func(t *testing.T) {
		out := proxyauth.DecorateContext(ctx, store)
		_, ok := metadata.FromOutgoingContext(out)
		assert.False(t, ok)
	})

	t.Run("bearer token attached", func(t *testing.T) {
		require.NoError(t, proxyauth.SaveToken(ctx, store, "abc", 0))
		out := proxyauth.DecorateContext(ctx, store)
		md, ok := metadata.FromOutgoingContext(out)
		require.True(t, ok)
		assert.Equal(t, []string{"Bearer abc"}, md.Get("authorization"))
	})
}

func TestUnit_TokenSource(t *testing.T) {
	ctx := context.Background()
	store := &proxyauth.MemoryStore{}
	src := proxyauth.TokenSource(store)

	_, err := src.Token()
	assert.Error(t, err)

	require.NoError(t, proxyauth.SaveToken(ctx, store, "abc", time.Hour))
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	require.NoError(t, proxyauth.SaveToken(ctx, store, "abc", -time.Hour))
	_, err = src.Token()
	assert.Error(t, err)
}

func TestUnit_Login_ReadsPastedToken(t *testing.T) {
	ctx := context.Background()
	store := &proxyauth.MemoryStore{}
	var out strings.Builder

	err := proxyauth.Login(ctx, "", strings.NewReader("pasted-token\n"), &out, store, 0)
	require.NoError(t, err)

	data, err := store.Load(ctx)
	require.NoError(t, err)
	tok, err := proxyauth.UnmarshalStoredToken(data)
	require.NoError(t, err)
	assert.Equal(t, "pasted-token", tok.AccessToken)
	assert.Contains(t, out.String(), "Paste the issued token")
}
