package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	ctx, id := NewContext(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)
}

func TestWithID(t *testing.T) {
	given := uuid.NewString()
	_, id := WithID(context.Background(), given)
	require.Equal(t, given, id)

	_, id = WithID(context.Background(), "not-a-uuid")
	require.NotEqual(t, "not-a-uuid", id)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
}
