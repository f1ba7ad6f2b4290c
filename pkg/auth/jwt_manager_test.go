package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_IssueCarriesIdentity(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)
	userID := uuid.New().String()

	token, err := mgr.Issue(userID, "alice@example.com", "alice")
	require.NoError(t, err)

	// Личность восстанавливается из одних claims, без базы
	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
}

func TestJWTManager_Expiry(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)

	token, err := mgr.Issue(uuid.New().String(), "alice@example.com", "alice")
	require.NoError(t, err)

	exp, err := mgr.Expiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour)
	forged := NewJWTManager("other-secret", time.Hour)

	token, err := forged.Issue(uuid.New().String(), "mallory@example.com", "mallory")
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	mgr := NewJWTManager("test-secret", -time.Minute)

	token, err := mgr.Issue(uuid.New().String(), "alice@example.com", "alice")
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	_, err = ExtractTokenFromHeader(req)
	assert.Error(t, err)

	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	token, err := ExtractTokenFromHeader(req)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	req.Header.Set("Authorization", "Basic abc")
	_, err = ExtractTokenFromHeader(req)
	assert.Error(t, err)
}
