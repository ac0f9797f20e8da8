package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("shh")
	token, err := v.Sign(Identity{UserID: "user-1", Email: "a@b.c", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "a@b.c", identity.Email)
	assert.True(t, identity.IsAdmin())
}

func TestJWTVerifierRejects(t *testing.T) {
	v := NewJWTVerifier("shh")

	expired, err := v.Sign(Identity{UserID: "u"}, -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	foreign, err := NewJWTVerifier("other").Sign(Identity{UserID: "u"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), foreign)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x"}).SignedString([]byte("shh"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = v.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestRemoteVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"user-9","email":"u@x.io","role":"authenticated"}`))
	}))
	defer server.Close()

	v := NewRemoteVerifier(server.URL+"/", "anon", server.Client())

	identity, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-9", identity.UserID)
	assert.False(t, identity.IsAdmin())

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestNewVerifier(t *testing.T) {
	cfg := config.Default()
	_, err := NewVerifier(cfg)
	assert.Error(t, err)

	cfg.Auth.JWTSecret = "s"
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	cfg.DisableAuth = true
	v, err = NewVerifier(cfg)
	require.NoError(t, err)
	identity, err := v.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DevUserID, identity.UserID)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
