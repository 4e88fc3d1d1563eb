// Package auth verifies session tokens issued by the external identity
// provider. Tokens are RS256 JWTs; public keys come from the provider's
// JWKS endpoint.
package auth

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
)

// SessionClaims are the claims carried by a provider session token.
// Subject is the provider user id.
type SessionClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.StandardClaims
}

type Verifier struct {
	keySet jwk.Set
}

// NewVerifierFromJWKS builds a verifier from a raw JWKS document.
func NewVerifierFromJWKS(jwksJSON []byte) (*Verifier, error) {
	keySet, err := jwk.Parse(jwksJSON)
	if err != nil {
		return nil, fmt.Errorf("unable to parse JWKS: %v", err)
	}

	return &Verifier{keySet: keySet}, nil
}

// NewVerifierFromURL fetches the provider's JWKS once at boot.
func NewVerifierFromURL(ctx context.Context, jwksURL string) (*Verifier, error) {
	keySet, err := jwk.Fetch(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch JWKS from %v: %v", jwksURL, err)
	}

	return &Verifier{keySet: keySet}, nil
}

// DecodeSessionToken validates the token's signature & registered claims
// and returns its claims.
func (v *Verifier) DecodeSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, _ := token.Header["kid"].(string)
		key, ok := v.keySet.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("no key found for kid %q", kid)
		}

		var publicKey rsa.PublicKey
		if err := key.Raw(&publicKey); err != nil {
			return nil, fmt.Errorf("unable to materialize public key: %v", err)
		}

		return &publicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %v", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to SessionClaims")
	}

	return claims, nil
}
