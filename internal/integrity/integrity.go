// Package integrity signs published snapshots so downstream consumers can
// verify that oracle data was not tampered with in transit or at rest.
package integrity

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Signer produces Ethereum-style secp256k1 signatures over snapshot JSON.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  string
}

// SignedEnvelope wraps a payload with its hash and signature.
type SignedEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Keccak256 string          `json:"keccak256"`
	Signature string          `json:"signature"`
	PublicKey string          `json:"public_key"`
	SignedAt  int64           `json:"signed_at"`
}

// NewSigner generates a fresh signing key for the process lifetime.
func NewSigner() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	s := &Signer{
		privateKey: privateKey,
		publicKey:  fmt.Sprintf("0x%x", crypto.FromECDSAPub(&privateKey.PublicKey)),
	}
	logrus.WithField("public_key", s.publicKey[:18]+"...").Info("Snapshot signer initialized")
	return s, nil
}

// PublicKey returns the hex-encoded uncompressed public key.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// Sign wraps the payload in a signed envelope. The signature covers the
// keccak256 hash of the payload's JSON encoding.
func (s *Signer) Sign(payload any) (*SignedEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	hash := crypto.Keccak256Hash(raw)
	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign payload: %w", err)
	}

	return &SignedEnvelope{
		Payload:   raw,
		Keccak256: hash.Hex(),
		Signature: fmt.Sprintf("0x%x", sig),
		PublicKey: s.publicKey,
		SignedAt:  time.Now().Unix(),
	}, nil
}

// Verify checks an envelope's hash and signature against its payload.
func Verify(env *SignedEnvelope) error {
	hash := crypto.Keccak256Hash(env.Payload)
	if hash.Hex() != env.Keccak256 {
		return fmt.Errorf("payload hash mismatch")
	}

	var sig []byte
	if _, err := fmt.Sscanf(env.Signature, "0x%x", &sig); err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}

	recovered, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("recover public key: %w", err)
	}
	if fmt.Sprintf("0x%x", crypto.FromECDSAPub(recovered)) != env.PublicKey {
		return fmt.Errorf("signature does not match public key")
	}
	return nil
}
