package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnit_ParseFieldPath(t *testing.T) {
	db := newFixtureDB(t)
	md, err := db.ResolveMessageType("payloads.NestedPayload")
	require.NoError(t, err)

	t.Run("resolves nested segments", func(t *testing.T) {
		fp, err := ParseFieldPath(md, "nested.nested.payload")
		require.NoError(t, err)
		require.Len(t, fp, 3)
		assert.Equal(t, "nested", string(fp[0].Name()))
		assert.Equal(t, "payload", string(fp[2].Name()))
	})

	t.Run("whole message forms", func(t *testing.T) {
		for _, path := range []string{"", "*"} {
			fp, err := ParseFieldPath(md, path)
			require.NoError(t, err)
			assert.Empty(t, fp)
		}
	})

	t.Run("unknown segment", func(t *testing.T) {
		_, err := ParseFieldPath(md, "nested.missing")
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Contains(t, err.Error(), `"missing"`)
		assert.Contains(t, err.Error(), "payloads.NestedPayload")
	})

	t.Run("scalar intermediate segment", func(t *testing.T) {
		_, err := ParseFieldPath(md, "payload.deeper")
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Contains(t, err.Error(), "not a message field")
	})

	t.Run("json name match", func(t *testing.T) {
		multi, err := db.ResolveMessageType("payloads.MultiPayload")
		require.NoError(t, err)
		fp, err := ParseFieldPath(multi, "customName")
		require.NoError(t, err)
		require.Len(t, fp, 1)
		assert.Equal(t, "renamed", string(fp[0].Name()))

		fp, err = ParseFieldPath(multi, "renamed")
		require.NoError(t, err)
		assert.Equal(t, "renamed", string(fp[0].Name()))
	})
}
