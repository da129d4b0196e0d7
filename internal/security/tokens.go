// Package security issues and checks the credentials exchanged with the session authority:
// signed access JWTs, opaque refresh tokens and bcrypt password hashes.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired or signed by someone else.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims of an access token. Subject is the account id.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID  string `json:"sid"`
	ActiveRole string `json:"role"`
}

// AccessIdentity is what a validated access token asserts.
type AccessIdentity struct {
	SessionID  string
	AccountID  string
	ActiveRole string
	ExpiresAt  time.Time
}

// TokenProvider issues and validates access JWTs using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with privateKey. issuer and audience are set on
// issued tokens and required on validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		nowF:       time.Now,
	}
}

// IssueAccess issues a short-lived access token bound to one session and its active role.
func (p *TokenProvider) IssueAccess(sessionID, accountID, role string) (token string, expiresAt time.Time, err error) {
	jti, err := NewOpaqueToken(16)
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.nowF().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID:  sessionID,
		ActiveRole: role,
	}
	token, err = p.sign(claims)
	// Numeric dates have second precision; report what the token actually says.
	return token, expiresAt.Truncate(time.Second), err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

// ValidateAccess checks signature, expiry, issuer and audience.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessIdentity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithTimeFunc(p.nowF),
		jwt.WithExpirationRequired(),
	)
	var claims AccessClaims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return p.publicKey, nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return &AccessIdentity{
		SessionID:  claims.SessionID,
		AccountID:  claims.Subject,
		ActiveRole: claims.ActiveRole,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// AccessTokenExpiry reads the exp claim without verifying the signature. Clients use it when the
// authority omits an explicit expiry; the authority itself always verifies.
func AccessTokenExpiry(tokenString string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}
