package ledger

import (
	"time"

	"finledger_go/crypto"
)

/**
 * Transaction is an immutable record of one financial or audit event.
 * The payload is a semi-structured mapping: the ledger itself is
 * payload-agnostic, and the business-rule collaborators give each kind its
 * own typed shape before converting at this boundary.
 */
type Transaction struct {
	ID        string         `json:"id"`        // Globally unique identifier
	Timestamp int64          `json:"timestamp"` // Microsecond epoch
	Kind      TxKind         `json:"kind"`      // One of the recognized kinds
	Payload   map[string]any `json:"payload"`   // Kind-specific data
	Signature string         `json:"signature"` // Optional base64 RSA-PSS signature
	Metadata  map[string]any `json:"metadata"`  // Free-form annotations
}

// NewTransaction creates a transaction stamped with the current time in
// microseconds. Payload and metadata are never left nil so the canonical form
// stays stable across construction paths.
func NewTransaction(id string, kind TxKind, payload map[string]any) *Transaction {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Transaction{
		ID:        id,
		Timestamp: time.Now().UnixMicro(),
		Kind:      kind,
		Payload:   payload,
		Metadata:  map[string]any{},
	}
}

// canonicalForm returns the stable-key-ordered representation hashed and
// persisted for this transaction.
func (t *Transaction) canonicalForm() map[string]any {
	payload := t.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	metadata := t.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return map[string]any{
		"id":        t.ID,
		"timestamp": t.Timestamp,
		"kind":      string(t.Kind),
		"payload":   payload,
		"signature": t.Signature,
		"metadata":  metadata,
	}
}

/**
 * CalculateHash generates the SHA-256 content hash of the transaction over its
 * canonical serialization. It is pure: two transactions with identical fields
 * always hash identically, which is what makes audit verification possible.
 */
func (t *Transaction) CalculateHash() string {
	return crypto.Hash(t.canonicalForm())
}

// Amount extracts the numeric "amount" payload field, tolerating the types the
// JSON round trip can produce. Missing or non-numeric amounts count as zero.
func (t *Transaction) Amount() float64 {
	switch v := t.Payload["amount"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
