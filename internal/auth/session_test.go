package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_NoToken_IsAbsent(t *testing.T) {
	s := NewSession("")

	id, ok, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, remote.Identity{}, id)
}

func TestSession_ValidToken(t *testing.T) {
	tok, err := GenerateToken("tenant-a", "a@example.com", []byte("k"), time.Hour)
	require.NoError(t, err)

	s := NewSession(tok)
	id, ok, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, remote.Identity{ID: "tenant-a", Email: "a@example.com"}, id)
	assert.Equal(t, tok, s.Token())
}

func TestSession_ExpiredToken_IsAbsent(t *testing.T) {
	tok, err := GenerateToken("tenant-a", "", []byte("k"), time.Minute)
	require.NoError(t, err)

	s := NewSession(tok)
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, ok, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_MalformedToken_IsError(t *testing.T) {
	s := NewSession("garbage")

	_, ok, err := s.CurrentUser(context.Background())
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.False(t, ok)
}

func TestSession_Clear(t *testing.T) {
	tok, err := GenerateToken("tenant-a", "", []byte("k"), time.Hour)
	require.NoError(t, err)

	s := NewSession(tok)
	s.Clear()

	_, ok, err := s.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_ConcurrentAccess(t *testing.T) {
	tok, err := GenerateToken("tenant-a", "", []byte("k"), time.Hour)
	require.NoError(t, err)
	s := NewSession("")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.SetToken(tok) }()
		go func() { defer wg.Done(); _, _, _ = s.CurrentUser(context.Background()) }()
	}
	wg.Wait()
	assert.Equal(t, tok, s.Token())
}
