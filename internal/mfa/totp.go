// Package mfa implements step-up verification with time-based one-time
// passwords (RFC 6238).
package mfa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const (
	period    = 30
	skew      = 1
	qrSize    = 256
	secretLen = 20
)

// SecretStore persists each user's base32 TOTP secret.  An empty secret
// means the user has not enrolled.
type SecretStore interface {
	TOTPSecret(ctx context.Context, userID string) (string, error)
	SetTOTPSecret(ctx context.Context, userID, secret string) error
}

// ReplayGuard remembers codes that were already accepted.  MarkUsed
// returns false when key was marked before and has not yet expired.
type ReplayGuard interface {
	MarkUsed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Enrollment is returned once, at enrollment time.  QRPNG encodes URL.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
	QRPNG  []byte `json:"qr_png"`
}

// TOTPProvider verifies 6-digit SHA1 codes over 30 second steps, accepting
// one step of clock drift either way.
type TOTPProvider struct {
	secrets SecretStore
	guard   ReplayGuard
	issuer  string
	log     *zap.Logger
	now     func() time.Time
}

// NewTOTPProvider builds a provider.  guard may be nil, which disables
// replay protection.
func NewTOTPProvider(secrets SecretStore, guard ReplayGuard, issuer string, log *zap.Logger) *TOTPProvider {
	if issuer == "" {
		issuer = "vault-access"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TOTPProvider{secrets: secrets, guard: guard, issuer: issuer, log: log, now: time.Now}
}

// GenerateSecret creates and stores a fresh secret for userID, replacing
// any previous one.  accountName is shown by authenticator apps.
func (p *TOTPProvider) GenerateSecret(ctx context.Context, userID, accountName string) (Enrollment, error) {
	if accountName == "" {
		accountName = userID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: accountName,
		Period:      period,
		SecretSize:  secretLen,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return Enrollment{}, fmt.Errorf("render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Enrollment{}, fmt.Errorf("encode qr: %w", err)
	}

	if err := p.secrets.SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return Enrollment{}, fmt.Errorf("store totp secret: %w", err)
	}
	return Enrollment{Secret: key.Secret(), URL: key.URL(), QRPNG: buf.Bytes()}, nil
}

// Verify reports whether code is currently valid for userID.  Unknown or
// unenrolled users, malformed codes and replays all verify false without
// error; an error means the check itself could not be completed.
func (p *TOTPProvider) Verify(ctx context.Context, userID, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != int(otp.DigitsSix) {
		return false, nil
	}
	secret, err := p.secrets.TOTPSecret(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load totp secret: %w", err)
	}
	if secret == "" {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, secret, p.now().UTC(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("validate totp: %w", err)
	}
	if !ok {
		return false, nil
	}

	if p.guard != nil {
		window := time.Duration(period*(2*skew+1)) * time.Second
		fresh, err := p.guard.MarkUsed(ctx, "mfa:used:"+userID+":"+code, window)
		if err != nil {
			return false, fmt.Errorf("replay guard: %w", err)
		}
		if !fresh {
			p.log.Warn("totp code replayed", zap.String("user_id", userID))
			return false, nil
		}
	}
	return true, nil
}
