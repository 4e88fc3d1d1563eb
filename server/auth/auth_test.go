package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/stretchr/testify/assert"
)

func testKeyAndJWKS(t *testing.T, kid string) (*rsa.PrivateKey, []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Nil(t, err)

	key, err := jwk.New(&privateKey.PublicKey)
	assert.Nil(t, err)
	assert.Nil(t, key.Set(jwk.KeyIDKey, kid))

	keySet := jwk.NewSet()
	keySet.Add(key)

	jwksJSON, err := json.Marshal(keySet)
	assert.Nil(t, err)

	return privateKey, jwksJSON
}

func signSessionToken(t *testing.T, privateKey *rsa.PrivateKey, kid string, claims SessionClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = kid

	tokenString, err := token.SignedString(privateKey)
	assert.Nil(t, err)

	return tokenString
}

func TestDecodeSessionToken(t *testing.T) {
	privateKey, jwksJSON := testKeyAndJWKS(t, "ins_key_1")

	verifier, err := NewVerifierFromJWKS(jwksJSON)
	assert.Nil(t, err)

	tokenString := signSessionToken(t, privateKey, "ins_key_1", SessionClaims{
		SessionID: "sess_1",
		StandardClaims: jwt.StandardClaims{
			Subject:   "u1",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	})

	claims, err := verifier.DecodeSessionToken(tokenString)
	assert.Nil(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "sess_1", claims.SessionID)
}

func TestDecodeSessionTokenRejectsUnknownKid(t *testing.T) {
	privateKey, jwksJSON := testKeyAndJWKS(t, "ins_key_1")

	verifier, err := NewVerifierFromJWKS(jwksJSON)
	assert.Nil(t, err)

	tokenString := signSessionToken(t, privateKey, "some_other_key", SessionClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})

	_, err = verifier.DecodeSessionToken(tokenString)
	assert.NotNil(t, err)
}

func TestDecodeSessionTokenRejectsExpired(t *testing.T) {
	privateKey, jwksJSON := testKeyAndJWKS(t, "ins_key_1")

	verifier, err := NewVerifierFromJWKS(jwksJSON)
	assert.Nil(t, err)

	tokenString := signSessionToken(t, privateKey, "ins_key_1", SessionClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u1", ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	})

	_, err = verifier.DecodeSessionToken(tokenString)
	assert.NotNil(t, err)
}

func TestDecodeSessionTokenRejectsForeignKey(t *testing.T) {
	_, jwksJSON := testKeyAndJWKS(t, "ins_key_1")

	verifier, err := NewVerifierFromJWKS(jwksJSON)
	assert.Nil(t, err)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Nil(t, err)

	tokenString := signSessionToken(t, otherKey, "ins_key_1", SessionClaims{
		StandardClaims: jwt.StandardClaims{Subject: "u1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	})

	_, err = verifier.DecodeSessionToken(tokenString)
	assert.NotNil(t, err)
}
