package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CanonicalJSON serializes a value into a stable byte form. The value is
// round-tripped through the generic JSON representation so that map keys are
// emitted in sorted order regardless of how the value was built.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to normalize value: %w", err)
	}
	return json.Marshal(generic)
}

// Hash calculates the SHA-256 hex digest of a value. Strings and byte slices
// hash their raw bytes, other scalars hash their string form, and composite
// values hash their canonical JSON serialization.
func Hash(value any) string {
	var data []byte
	switch v := value.(type) {
	case nil:
		data = []byte("")
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		data = []byte(fmt.Sprint(v))
	default:
		canonical, err := CanonicalJSON(v)
		if err != nil {
			data = []byte(fmt.Sprint(v))
		} else {
			data = canonical
		}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MerkleRoot folds an ordered list of items into a single digest. Each item is
// hashed, then adjacent digest pairs are concatenated and re-hashed level by
// level, duplicating the last digest when a level has odd cardinality. An
// empty list yields Hash("").
func MerkleRoot(items []any) string {
	if len(items) == 0 {
		return Hash("")
	}

	level := make([]string, len(items))
	for i, item := range items {
		level[i] = Hash(item)
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, Hash(level[i]+level[i+1]))
		}
		level = next
	}

	return level[0]
}

// GenerateKeyPair creates a 2048-bit RSA keypair for signing transactions.
// The private key is returned as a PKCS#8 PEM and the public key as a PKIX
// PEM so both travel as portable text.
func GenerateKeyPair() (string, string, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateBytes,
	})

	publicBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicBytes,
	})

	return string(privatePEM), string(publicPEM), nil
}

// Sign produces a base64 RSA-PSS signature over the canonical serialization of
// the payload. PSS padding is randomized, so two signatures of the same
// payload will differ while both remaining verifiable.
func Sign(privateKeyPEM string, payload map[string]any) (string, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return "", errors.New("invalid private key PEM")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}
	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return "", errors.New("private key is not RSA")
	}

	data, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(data)

	signature, err := rsa.SignPSS(rand.Reader, privateKey, stdcrypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       stdcrypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// Verify checks a base64 RSA-PSS signature against the canonical serialization
// of the payload. It never returns an error: malformed keys, signatures, or
// payloads all collapse to false.
func Verify(publicKeyPEM string, payload map[string]any, signature string) bool {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return false
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}
	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}

	data, err := CanonicalJSON(payload)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)

	signatureBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	err = rsa.VerifyPSS(publicKey, stdcrypto.SHA256, digest[:], signatureBytes, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       stdcrypto.SHA256,
	})
	return err == nil
}

// NewTransactionID generates a unique transaction ID with microsecond
// precision: "<micros>-<instance>-<uuid fragment>".
func NewTransactionID(instanceID string) string {
	if instanceID == "" {
		instanceID = "default"
	}
	micros := time.Now().UnixMicro()
	unique := uuid.NewString()[:8]
	return fmt.Sprintf("%d-%s-%s", micros, instanceID, unique)
}
