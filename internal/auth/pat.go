package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// PATClaims are the claims embedded in a personal access token issued to
// a service account for unattended automation against the RPC endpoint.
type PATClaims struct {
	Subject  string `json:"sub"`
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// PATManager issues and validates HMAC-signed personal access tokens.
// Unlike the frontend's OIDC ID tokens, PATs are self-issued here so
// service automation doesn't need a browser-based identity provider flow.
type PATManager struct {
	signingKey []byte
	maxAge     time.Duration
}

// NewPATManager creates a manager. The secret must be at least 32 bytes.
func NewPATManager(secret string, maxAge time.Duration) (*PATManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("PAT signing secret must be at least 32 bytes, got %d", len(secret))
	}
	return &PATManager{signingKey: []byte(secret), maxAge: maxAge}, nil
}

// GenerateDevSecret generates a random 32-byte hex-encoded secret for
// local development, where a real secret store isn't configured.
func GenerateDevSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// IssueToken creates a signed JWT carrying claims.
func (pm *PATManager) IssueToken(claims PATClaims) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: pm.signingKey},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(pm.maxAge)),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    "integration-core",
	}

	token, err := jwt.Signed(signer).Claims(registered).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ValidateToken verifies the JWT signature and expiry and returns the claims.
func (pm *PATManager) ValidateToken(raw string) (*PATClaims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	var registered jwt.Claims
	var custom PATClaims
	if err := tok.Claims(pm.signingKey, &registered, &custom); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{
		Issuer: "integration-core",
		Time:   time.Now(),
	}, 5*time.Second); err != nil {
		return nil, fmt.Errorf("validating claims: %w", err)
	}

	return &custom, nil
}
