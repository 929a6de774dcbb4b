package ds4

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Key blob field sizes. The blob layout is:
//
//	serial[0x10] modulus[0x100] exponent[0x100]  (identity)
//	sigIdentity[0x100]                           (signature over identity)
//	p[0x80] q[0x80] dp[0x80] dq[0x80] qinv[0x80] (CRT private key)
const (
	keySerialSize   = 0x10
	keyModulusSize  = 0x100
	keyExponentSize = 0x100
	keySigSize      = 0x100
	keyFactorSize   = 0x80

	identitySize       = keySerialSize + keyModulusSize + keyExponentSize
	signedIdentitySize = identitySize + keySigSize
	// KeyBlobSize is the exact size of a controller key bundle.
	KeyBlobSize = signedIdentitySize + 5*keyFactorSize

	// SignatureSize is the RSA signature length produced over a challenge.
	SignatureSize = 0x100
	// ResponseSize is a signature plus the signed identity block.
	ResponseSize = SignatureSize + signedIdentitySize
)

// ErrBadKeyBlob indicates the key bundle is truncated or internally
// inconsistent.
var ErrBadKeyBlob = errors.New("ds4: bad key blob")

// Signer is the capability the authentication engine needs from key
// material: produce the full wire response for a challenge nonce.
type Signer interface {
	SignChallenge(nonce []byte) ([]byte, error)
}

// Key holds controller key material: an RSA private key plus the
// vendor-signed identity block that is replayed to the host verbatim.
type Key struct {
	key            *rsa.PrivateKey
	signedIdentity []byte // identity + identity signature, 0x310 bytes
}

// LoadKey reads and validates a key bundle from r.
func LoadKey(r io.Reader) (*Key, error) {
	blob := make([]byte, KeyBlobSize)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyBlob, err)
	}
	return ParseKey(blob)
}

// ParseKey parses a raw key bundle. The CRT factors embedded in the blob are
// checked against P and Q; a mismatch means the blob was corrupted or
// assembled from mismatched halves.
func ParseKey(blob []byte) (*Key, error) {
	if len(blob) != KeyBlobSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadKeyBlob, len(blob), KeyBlobSize)
	}

	off := keySerialSize
	n := new(big.Int).SetBytes(blob[off : off+keyModulusSize])
	off += keyModulusSize
	e := new(big.Int).SetBytes(blob[off : off+keyExponentSize])
	off = signedIdentitySize
	p := new(big.Int).SetBytes(blob[off : off+keyFactorSize])
	off += keyFactorSize
	q := new(big.Int).SetBytes(blob[off : off+keyFactorSize])
	off += keyFactorSize
	dp := new(big.Int).SetBytes(blob[off : off+keyFactorSize])
	off += keyFactorSize
	dq := new(big.Int).SetBytes(blob[off : off+keyFactorSize])
	off += keyFactorSize
	qinv := new(big.Int).SetBytes(blob[off : off+keyFactorSize])

	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("%w: unusable public exponent", ErrBadKeyBlob)
	}

	pm1 := new(big.Int).Sub(p, big.NewInt(1))
	qm1 := new(big.Int).Sub(q, big.NewInt(1))
	phi := new(big.Int).Mul(pm1, qm1)
	d := new(big.Int).ModInverse(e, phi)
	if d == nil {
		return nil, fmt.Errorf("%w: exponent not invertible", ErrBadKeyBlob)
	}

	qinvCalc := new(big.Int).ModInverse(q, p)
	if qinvCalc == nil || qinvCalc.Cmp(qinv) != 0 ||
		new(big.Int).Mod(d, pm1).Cmp(dp) != 0 ||
		new(big.Int).Mod(d, qm1).Cmp(dq) != 0 {
		return nil, fmt.Errorf("%w: CRT factors inconsistent with P and Q", ErrBadKeyBlob)
	}

	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKeyBlob, err)
	}
	priv.Precompute()

	return &Key{
		key:            priv,
		signedIdentity: append([]byte(nil), blob[:signedIdentitySize]...),
	}, nil
}

// SignChallenge signs a challenge nonce with RSASSA-PSS over SHA-256 and
// returns the wire response: signature followed by the signed identity
// block.
func (k *Key) SignChallenge(nonce []byte) ([]byte, error) {
	digest := sha256.Sum256(nonce)
	sig, err := rsa.SignPSS(rand.Reader, k.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}

	resp := make([]byte, 0, ResponseSize)
	resp = append(resp, make([]byte, SignatureSize-len(sig))...)
	resp = append(resp, sig...)
	resp = append(resp, k.signedIdentity...)
	return resp, nil
}

// Public returns the embedded RSA public key.
func (k *Key) Public() *rsa.PublicKey {
	return &k.key.PublicKey
}

// Serial returns the 16-byte controller serial from the identity block.
func (k *Key) Serial() []byte {
	return append([]byte(nil), k.signedIdentity[:keySerialSize]...)
}

// Fingerprint returns the SHA-256 hex fingerprint of the public key.
func (k *Key) Fingerprint() string {
	der, err := x509.MarshalPKIXPublicKey(&k.key.PublicKey)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
