package mfa

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type secretMap struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *secretMap) TOTPSecret(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[userID]
	if !ok {
		return "", errors.New("no such user")
	}
	return v, nil
}

func (s *secretMap) SetTOTPSecret(_ context.Context, userID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = secret
	return nil
}

type memGuard struct {
	used map[string]bool
}

func (g *memGuard) MarkUsed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if g.used[key] {
		return false, nil
	}
	g.used[key] = true
	return true, nil
}

func newProvider(t *testing.T, now time.Time) (*TOTPProvider, *secretMap) {
	t.Helper()
	store := &secretMap{m: map[string]string{"u1": ""}}
	p := NewTOTPProvider(store, &memGuard{used: map[string]bool{}}, "vault-test", nil)
	p.now = func() time.Time { return now }
	return p, store
}

func TestGenerateSecretStoresSecretAndRendersQR(t *testing.T) {
	p, store := newProvider(t, time.Now())

	enr, err := p.GenerateSecret(context.Background(), "u1", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, enr.Secret)
	assert.Contains(t, enr.URL, "otpauth://totp/")
	assert.Contains(t, enr.URL, "issuer=vault-test")
	assert.Equal(t, enr.Secret, store.m["u1"])

	_, err = png.Decode(bytes.NewReader(enr.QRPNG))
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p, _ := newProvider(t, now)
	ctx := context.Background()

	enr, err := p.GenerateSecret(ctx, "u1", "alice")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enr.Secret, now)
	require.NoError(t, err)
	ok, err := p.Verify(ctx, "u1", code)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("replay rejected", func(t *testing.T) {
		ok, err := p.Verify(ctx, "u1", code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("previous step accepted", func(t *testing.T) {
		prev, err := totp.GenerateCode(enr.Secret, now.Add(-30*time.Second))
		require.NoError(t, err)
		ok, err := p.Verify(ctx, "u1", prev)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale code rejected", func(t *testing.T) {
		old, err := totp.GenerateCode(enr.Secret, now.Add(-5*time.Minute))
		require.NoError(t, err)
		ok, err := p.Verify(ctx, "u1", old)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed code rejected", func(t *testing.T) {
		for _, c := range []string{"", "12345", "1234567", "abcdef"} {
			ok, err := p.Verify(ctx, "u1", c)
			assert.NoError(t, err, c)
			assert.False(t, ok, c)
		}
	})
}

func TestVerifyUnenrolledUser(t *testing.T) {
	p, _ := newProvider(t, time.Now())
	ok, err := p.Verify(context.Background(), "u1", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyStoreError(t *testing.T) {
	p, _ := newProvider(t, time.Now())
	ok, err := p.Verify(context.Background(), "ghost", "123456")
	assert.Error(t, err)
	assert.False(t, ok)
}
