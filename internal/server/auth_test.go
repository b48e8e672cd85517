package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	a := NewTokenAuth("s3cret", time.Minute)
	room := uuid.New()
	tok, err := a.Issue(room, "alice")
	require.NoError(t, err)

	sub, err := a.Verify(tok, room)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	_, err = a.Verify(tok, uuid.New())
	assert.ErrorIs(t, err, ErrWrongRoom)

	_, err = NewTokenAuth("other", time.Minute).Verify(tok, room)
	assert.Error(t, err)

	_, err = a.Verify("", room)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestExpiredToken(t *testing.T) {
	a := NewTokenAuth("s3cret", -time.Minute)
	room := uuid.New()
	tok, err := a.Issue(room, "alice")
	require.NoError(t, err)
	_, err = a.Verify(tok, room)
	assert.Error(t, err)
}

func TestRequestToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/rooms/x?token=q", nil)
	assert.Equal(t, "q", requestToken(r))
	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", requestToken(r))
	r.Header.Set("Authorization", "Basic zzz")
	assert.Equal(t, "q", requestToken(r))
}
