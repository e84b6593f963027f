package restclient

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSASignerProducesVerifiableSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer := NewRSASigner("ak_123", key)
	headers, err := signer.Sign("GET", "/trade-api/v2/portfolio/balance", 1700000000000)
	require.NoError(t, err)

	assert.Equal(t, "ak_123", headers["ACCESS-KEY"])
	assert.Equal(t, "1700000000000", headers["ACCESS-TIMESTAMP"])

	sigBytes, err := base64.StdEncoding.DecodeString(headers["ACCESS-SIGNATURE"])
	require.NoError(t, err)

	message := "1700000000000" + "GET" + "/trade-api/v2/portfolio/balance"
	digest := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], sigBytes, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	assert.NoError(t, err)
}

func TestRSASignerEmitsBareHeaderNames(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer := NewRSASigner("abc", key)
	headers, err := signer.Sign("GET", "/trade-api/v2/portfolio/balance", 1700000000000)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ACCESS-KEY", "ACCESS-SIGNATURE", "ACCESS-TIMESTAMP"}, headerKeys(headers))
	assert.Equal(t, "abc", headers["ACCESS-KEY"])
	assert.Equal(t, "1700000000000", headers["ACCESS-TIMESTAMP"])
}

func headerKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestRSASignerRequiresKey(t *testing.T) {
	signer := &RSASigner{AccessKey: "ak"}
	_, err := signer.Sign("GET", "/x", 1)
	require.Error(t, err)
}
