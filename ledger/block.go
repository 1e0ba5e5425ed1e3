package ledger

import (
	"strings"
	"time"

	"finledger_go/crypto"
)

/**
 * Block is an ordered batch of transactions sealed by a proof-of-work nonce
 * search and linked to its predecessor through PreviousHash. Transaction order
 * inside a block is admission order and is preserved verbatim.
 */
type Block struct {
	Index        int64          `json:"index"`         // Position in the chain, 0 = genesis
	Timestamp    int64          `json:"timestamp"`     // Microsecond epoch at construction
	Transactions []*Transaction `json:"transactions"`  // Admission-ordered batch
	PreviousHash string         `json:"previous_hash"` // Hash of the prior block, "0" for genesis
	Nonce        int64          `json:"nonce"`         // Proof-of-work counter, starts at 0
	Hash         string         `json:"hash"`          // Set only once sealing succeeds
}

// NewBlock initializes an unsealed block linked to the given previous hash.
func NewBlock(index int64, previousHash string, transactions []*Transaction) *Block {
	return &Block{
		Index:        index,
		Timestamp:    time.Now().UnixMicro(),
		Transactions: transactions,
		PreviousHash: previousHash,
		Nonce:        0,
	}
}

/**
 * CalculateHash generates the SHA-256 hash of the block's canonical content:
 * index, timestamp, the canonical form of every transaction in order, the
 * previous hash, and the nonce. It is recomputed on every call and never
 * cached, so a stale Hash field can always be detected.
 */
func (b *Block) CalculateHash() string {
	txForms := make([]any, len(b.Transactions))
	for i, tx := range b.Transactions {
		txForms[i] = tx.canonicalForm()
	}
	return crypto.Hash(map[string]any{
		"index":         b.Index,
		"timestamp":     b.Timestamp,
		"transactions":  txForms,
		"previous_hash": b.PreviousHash,
		"nonce":         b.Nonce,
	})
}

/**
 * Mine performs the proof-of-work seal: starting from nonce 0 it recomputes
 * the hash and increments the nonce until the hash carries the required
 * number of leading zero characters, then stores that hash. The search is
 * synchronous and always terminates; difficulty 0 succeeds immediately.
 */
func (b *Block) Mine(difficulty int) {
	prefix := strings.Repeat("0", difficulty)
	b.Nonce = 0
	for {
		hash := b.CalculateHash()
		if strings.HasPrefix(hash, prefix) {
			b.Hash = hash
			return
		}
		b.Nonce++
	}
}

// MerkleRoot summarizes the block's transaction set independent of the block
// hash, for cross-checking batches between stores.
func (b *Block) MerkleRoot() string {
	items := make([]any, len(b.Transactions))
	for i, tx := range b.Transactions {
		items[i] = tx.canonicalForm()
	}
	return crypto.MerkleRoot(items)
}

// HasValidSeal reports whether the stored hash matches the recomputed content
// hash and satisfies the difficulty prefix.
func (b *Block) HasValidSeal(difficulty int) bool {
	if b.Hash == "" || b.Hash != b.CalculateHash() {
		return false
	}
	return strings.HasPrefix(b.Hash, strings.Repeat("0", difficulty))
}
