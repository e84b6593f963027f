package restclient

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strconv"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

// Signer computes the three exchange auth headers for a given method+path.
// Pluggable so tests can inject a deterministic stub, matching spec §4.2's
// "pluggable signer" requirement for REST connections.
type Signer interface {
	Sign(method, path string, timestampMillis int64) (map[string]string, error)
}

// RSASigner signs with RSA-PSS(SHA-256, salt=hLen, MGF1-SHA256), the exact
// scheme the exchange API requires.
type RSASigner struct {
	AccessKey  string
	PrivateKey *rsa.PrivateKey
}

func NewRSASigner(accessKey string, key *rsa.PrivateKey) *RSASigner {
	return &RSASigner{AccessKey: accessKey, PrivateKey: key}
}

// Sign builds ACCESS-KEY / -SIGNATURE / -TIMESTAMP headers.
func (s *RSASigner) Sign(method, path string, timestampMillis int64) (map[string]string, error) {
	if s.PrivateKey == nil {
		return nil, xerrors.New(xerrors.KindAuthentication, "sign", "no private key loaded")
	}
	ts := strconv.FormatInt(timestampMillis, 10)
	message := ts + method + path
	digest := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPSS(rand.Reader, s.PrivateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindAuthentication, "sign", "RSA-PSS signing failed", err)
	}

	return map[string]string{
		"ACCESS-KEY":       s.AccessKey,
		"ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(sig),
		"ACCESS-TIMESTAMP": ts,
	}, nil
}
