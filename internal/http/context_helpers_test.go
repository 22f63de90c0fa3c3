package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
)

func TestGetSessionFromContext(t *testing.T) {
	// No session
	_, ok := GetSessionFromContext(context.Background())
	assert.False(t, ok)

	// Round trip
	sess := &domainauth.Session{ID: "sess-1", Username: "jdoe"}
	ctx := SetSessionInContext(context.Background(), sess)

	got, ok := GetSessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, "jdoe", got.Username)
}
