package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gbp-verify/pkg/wizard"
)

// ErrInvalidReceipt means a lead token is missing, forged, expired or issued
// for another lead. It wraps wizard.ErrRestartRequired so the wizard sends the
// visitor back to step 1.
var ErrInvalidReceipt = fmt.Errorf("invalid lead receipt: %w", wizard.ErrRestartRequired)

const leadTokenIssuer = "gbp-verify"

// LeadClaims are the claims carried by a lead token.
type LeadClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks lead tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an HS256 issuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a token proving that the lead capture for leadID was accepted.
func (i *TokenIssuer) Issue(leadID string) (string, error) {
	now := i.now()
	claims := LeadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    leadTokenIssuer,
			Subject:   leadID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error signing lead token: %w", err)
	}
	return signed, nil
}

// Verify checks token and that it was issued for leadID.
func (i *TokenIssuer) Verify(token, leadID string) error {
	if token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidReceipt)
	}
	claims := &LeadClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(leadTokenIssuer),
		jwt.WithSubject(leadID),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: token expired", ErrInvalidReceipt)
		}
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	return nil
}
