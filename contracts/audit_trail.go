package contracts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"finledger_go/crypto"
	"finledger_go/ledger"
)

// AuditEntry is one entry in an entity's audit trail.
type AuditEntry struct {
	EntryID    string         `json:"entry_id"`
	Timestamp  int64          `json:"timestamp"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     string         `json:"user_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	Hash       string         `json:"hash"`
}

/**
 * AuditTrailContract keeps a per-entity hash chain of audit entries, separate
 * from the block chain itself: each entry hashes over its fields plus the
 * previous entry hash for the same entity, so editing history for one entity
 * breaks that entity's chain. Entries are also recorded on the ledger as
 * audit_trail transactions.
 */
type AuditTrailContract struct {
	mutex        sync.Mutex
	chain        LedgerAPI
	entries      map[string]*AuditEntry
	entityHashes map[string]string
}

// auditChainGenesis seeds each entity's hash chain.
const auditChainGenesis = "genesis"

// NewAuditTrailContract creates the contract bound to a ledger.
func NewAuditTrailContract(chain LedgerAPI) *AuditTrailContract {
	return &AuditTrailContract{
		chain:        chain,
		entries:      make(map[string]*AuditEntry),
		entityHashes: make(map[string]string),
	}
}

// LogAction appends an audit entry for an entity and records it on the chain.
// It returns the entry ID.
func (c *AuditTrailContract) LogAction(action, entityType, entityID, userID string, changes map[string]any) (string, error) {
	if action == "" || entityType == "" || entityID == "" {
		return "", ledger.NewError(ledger.ErrorTypeValidation, "action, entity_type and entity_id are required")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry := &AuditEntry{
		EntryID:    fmt.Sprintf("audit_%d", time.Now().UnixMicro()),
		Timestamp:  time.Now().UnixMicro(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Changes:    changes,
	}

	previousHash, ok := c.entityHashes[entityID]
	if !ok {
		previousHash = auditChainGenesis
	}
	entry.Hash = auditEntryHash(entry, previousHash)

	tx := ledger.NewTransaction(entry.EntryID, ledger.TxAuditTrail, map[string]any{
		"action":      action,
		"entity_type": entityType,
		"entity_id":   entityID,
		"user_id":     userID,
		"entry_hash":  entry.Hash,
	})
	if _, err := c.chain.Admit(tx); err != nil {
		return "", err
	}

	c.entries[entry.EntryID] = entry
	c.entityHashes[entityID] = entry.Hash
	return entry.EntryID, nil
}

func auditEntryHash(entry *AuditEntry, previousHash string) string {
	return crypto.Hash(map[string]any{
		"entry_id":      entry.EntryID,
		"timestamp":     entry.Timestamp,
		"action":        entry.Action,
		"entity_type":   entry.EntityType,
		"entity_id":     entry.EntityID,
		"user_id":       entry.UserID,
		"changes":       entry.Changes,
		"previous_hash": previousHash,
	})
}

// EntityHistory returns an entity's audit entries in timestamp order.
func (c *AuditTrailContract) EntityHistory(entityID string) []*AuditEntry {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.entityEntriesLocked(entityID)
}

func (c *AuditTrailContract) entityEntriesLocked(entityID string) []*AuditEntry {
	entries := []*AuditEntry{}
	for _, entry := range c.entries {
		if entry.EntityID == entityID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp == entries[j].Timestamp {
			return entries[i].EntryID < entries[j].EntryID
		}
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// VerifyEntityChain recomputes an entity's audit hash chain and reports any
// entries whose stored hash no longer matches, plus a final check that the
// tracked entity hash equals the chain tip.
func (c *AuditTrailContract) VerifyEntityChain(entityID string) (bool, []string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	issues := []string{}
	previousHash := auditChainGenesis
	for _, entry := range c.entityEntriesLocked(entityID) {
		if entry.Hash != auditEntryHash(entry, previousHash) {
			issues = append(issues, fmt.Sprintf("hash mismatch for entry %s", entry.EntryID))
		}
		previousHash = entry.Hash
	}

	if tip, ok := c.entityHashes[entityID]; ok && tip != previousHash {
		issues = append(issues, "entity hash doesn't match audit trail tip")
	}
	return len(issues) == 0, issues
}
