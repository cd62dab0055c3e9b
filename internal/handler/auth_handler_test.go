package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

func TestAuthLoginSuccess(t *testing.T) {
	svc := &fakeAuth{res: &models.LoginResponse{AccessToken: "token", ExpiresIn: 900}}
	h := NewAuthHandler(svc)
	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"secret"}`, nil)
	c.Request.Header.Set("User-Agent", "curl/8")

	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@example.com", svc.lastReq.Email)
	assert.Equal(t, "curl/8", svc.lastReq.UserAgent)

	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "token", res.AccessToken)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{err: appErrors.ErrInvalidCredentials})
	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"nope"}`, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthLoginMalformed(t *testing.T) {
	svc := &fakeAuth{}
	h := NewAuthHandler(svc)
	c, rec := newContext(http.MethodPost, "/api/auth/login", `not json`, nil)

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastReq.Email)
}

func TestAuthMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{})

	c, rec := newContext(http.MethodGet, "/api/auth/me", "", adminClaims)
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, "admin-1", info.ID)
	assert.Equal(t, models.RoleAdmin, info.Role)

	c, rec = newContext(http.MethodGet, "/api/auth/me", "", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
