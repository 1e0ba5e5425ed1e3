package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"finledger_go/utils"
)

// BalanceSheet aggregates the financial position recorded on the chain.
type BalanceSheet struct {
	TotalInvoiced float64 `json:"total_invoiced"`
	TotalPaid     float64 `json:"total_paid"`
	TotalExpenses float64 `json:"total_expenses"`
	Outstanding   float64 `json:"outstanding"`
	NetIncome     float64 `json:"net_income"`
}

// SealHook is invoked with each freshly sealed block, after it has been
// appended and persisted. Hooks run inside the seal critical section and
// should hand off work instead of blocking.
type SealHook func(*Block)

/**
 * Ledger owns the ordered chain of sealed blocks and the pending-transaction
 * queue. All mutation goes through Admit and Seal under one mutex, giving the
 * single-writer discipline the data model assumes: no two seals can observe
 * the same pending queue, and no two blocks can claim the same index. Reads
 * take the shared lock, and because a block is appended only after its hash
 * is sealed, readers never observe a torn chain.
 */
type Ledger struct {
	mutex         sync.RWMutex
	chain         []*Block
	pending       []*Transaction
	difficulty    int
	sealThreshold int
	store         *ChainStore
	index         *BlockIndexDB
	sealHook      SealHook
}

// NewLedger creates a ledger persisting to dataDir. Initialize must be called
// before any other operation.
func NewLedger(dataDir string, difficulty, sealThreshold int) (*Ledger, error) {
	if difficulty < 0 {
		return nil, fmt.Errorf("difficulty must be non-negative, got %d", difficulty)
	}
	if sealThreshold <= 0 {
		sealThreshold = DefaultSealThreshold
	}
	store, err := NewChainStore(dataDir)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		chain:         make([]*Block, 0),
		pending:       make([]*Transaction, 0),
		difficulty:    difficulty,
		sealThreshold: sealThreshold,
		store:         store,
	}, nil
}

// SetBlockIndex attaches a derived LevelDB index that is kept in sync with
// every sealed block. Must be set before Initialize.
func (l *Ledger) SetBlockIndex(index *BlockIndexDB) {
	l.index = index
}

// SetSealHook registers a callback fired after each successful seal.
func (l *Ledger) SetSealHook(hook SealHook) {
	l.sealHook = hook
}

/**
 * Initialize loads and validates persisted chain state, or mints, seals, and
 * persists a genesis block when no store exists yet. A store that exists but
 * is unreadable or structurally corrupt fails with a persistence error; the
 * ledger never silently discards state.
 */
func (l *Ledger) Initialize() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.store.Exists() {
		chain, difficulty, err := l.store.Load()
		if err != nil {
			return err
		}
		l.chain = chain
		l.difficulty = difficulty
		utils.LogInfo("Loaded chain with %d blocks from %s", len(chain), l.store.Path())

		if l.index != nil {
			height, err := l.index.Height()
			if err != nil || height < int64(len(chain))-1 {
				if err := l.index.Rebuild(chain); err != nil {
					return err
				}
			}
		}
		return nil
	}

	genesisTx := NewTransaction("genesis", TxGenesis, map[string]any{
		"message": "financial ledger genesis",
	})
	genesisBlock := NewBlock(0, GenesisPreviousHash, []*Transaction{genesisTx})
	genesisBlock.Mine(l.difficulty)
	l.chain = append(l.chain, genesisBlock)

	if err := l.store.Save(l.chain, l.difficulty); err != nil {
		return err
	}
	if l.index != nil {
		if err := l.index.SaveBlock(genesisBlock); err != nil {
			return err
		}
	}

	utils.LogInfo("Created genesis block %s at difficulty %d", genesisBlock.Hash, l.difficulty)
	return nil
}

// validateShape enforces the structural transaction invariants the ledger
// itself owns. Business and compliance policy live in the validation package.
func validateShape(tx *Transaction) error {
	if tx == nil {
		return NewError(ErrorTypeInvalidTransaction, "transaction is nil")
	}
	if tx.ID == "" {
		return NewError(ErrorTypeInvalidTransaction, "transaction ID must not be empty")
	}
	if tx.Timestamp == 0 {
		return NewError(ErrorTypeInvalidTransaction, "transaction timestamp must not be zero").WithTxID(tx.ID)
	}
	if !KindRecognized(tx.Kind) {
		return NewErrorf(ErrorTypeInvalidTransaction, "unrecognized transaction kind: %s", tx.Kind).WithTxID(tx.ID)
	}
	return nil
}

/**
 * Admit runs the structural gate and appends the transaction to the pending
 * queue in arrival order. When the queue reaches the seal threshold an
 * automatic seal is triggered before returning. If that seal fails the
 * transaction stays queued and the error is returned alongside its ID.
 */
func (l *Ledger) Admit(tx *Transaction) (string, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := validateShape(tx); err != nil {
		return "", err
	}

	l.pending = append(l.pending, tx)
	utils.LogDebug("Admitted transaction %s (%s), pending=%d", tx.ID, tx.Kind, len(l.pending))

	if len(l.pending) >= l.sealThreshold {
		if _, err := l.sealLocked(DefaultMinerTag); err != nil {
			return tx.ID, err
		}
	}

	return tx.ID, nil
}

// Seal batches the pending queue into a new block and mines it. It returns
// nil without error when there is nothing to seal.
func (l *Ledger) Seal(minerTag string) (*Block, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.sealLocked(minerTag)
}

// sealLocked is the single chain mutator. Callers must hold the write lock.
func (l *Ledger) sealLocked(minerTag string) (*Block, error) {
	if len(l.pending) == 0 {
		return nil, nil
	}
	if minerTag == "" {
		minerTag = DefaultMinerTag
	}

	now := time.Now().UnixMicro()
	rewardTx := &Transaction{
		ID:        fmt.Sprintf("reward_%d", now),
		Timestamp: now,
		Kind:      TxMiningReward,
		Payload: map[string]any{
			"miner":  minerTag,
			"amount": MiningRewardAmount,
		},
		Metadata: map[string]any{},
	}

	transactions := make([]*Transaction, 0, len(l.pending)+1)
	transactions = append(transactions, l.pending...)
	transactions = append(transactions, rewardTx)

	block := NewBlock(int64(len(l.chain)), l.chain[len(l.chain)-1].Hash, transactions)

	start := time.Now()
	block.Mine(l.difficulty)
	utils.LogInfo("Sealed block %d with %d transactions in %s (nonce=%d)",
		block.Index, len(transactions), time.Since(start), block.Nonce)

	l.chain = append(l.chain, block)
	l.pending = make([]*Transaction, 0)

	if err := l.store.Save(l.chain, l.difficulty); err != nil {
		return nil, err
	}
	if l.index != nil {
		if err := l.index.SaveBlock(block); err != nil {
			utils.LogError("Failed to index sealed block %d: %v", block.Index, err)
		}
	}

	if l.sealHook != nil {
		l.sealHook(block)
	}

	return block, nil
}

/**
 * ValidateChain verifies the three chain invariants for every adjacent block
 * pair: the stored hash matches the recomputed content hash, the previous
 * hash links to the predecessor, and the hash satisfies the difficulty
 * prefix. It returns false on the first violation and never repairs anything;
 * detecting tampering is a query, not a fault.
 */
func (l *Ledger) ValidateChain() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	prefix := strings.Repeat("0", l.difficulty)
	for i := 1; i < len(l.chain); i++ {
		current := l.chain[i]
		previous := l.chain[i-1]

		if current.Hash != current.CalculateHash() {
			return false
		}
		if current.PreviousHash != previous.Hash {
			return false
		}
		if !strings.HasPrefix(current.Hash, prefix) {
			return false
		}
	}
	return true
}

// History flattens every block's transactions in chain order, optionally
// filtered by kind. An empty kind returns everything.
func (l *Ledger) History(kindFilter TxKind) []*Transaction {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	transactions := make([]*Transaction, 0)
	for _, block := range l.chain {
		for _, tx := range block.Transactions {
			if kindFilter == "" || tx.Kind == kindFilter {
				transactions = append(transactions, tx)
			}
		}
	}
	return transactions
}

// BalanceSheet aggregates invoices, payments, and expenses in one pass over
// the recorded history.
func (l *Ledger) BalanceSheet() BalanceSheet {
	var sheet BalanceSheet
	for _, tx := range l.History("") {
		amount := tx.Amount()
		switch tx.Kind {
		case TxInvoice:
			sheet.TotalInvoiced += amount
			sheet.Outstanding += amount
		case TxPayment:
			sheet.TotalPaid += amount
			sheet.Outstanding -= amount
		case TxExpense:
			sheet.TotalExpenses += amount
		}
	}
	sheet.NetIncome = sheet.TotalPaid - sheet.TotalExpenses
	return sheet
}

// GetLatestBlock returns the most recent sealed block.
func (l *Ledger) GetLatestBlock() *Block {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if len(l.chain) == 0 {
		return nil
	}
	return l.chain[len(l.chain)-1]
}

// GetBlockByIndex returns the block at the given position, going through the
// LevelDB index when one is attached.
func (l *Ledger) GetBlockByIndex(index int64) (*Block, error) {
	if l.index != nil {
		return l.index.GetBlockByIndex(index)
	}
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	if index < 0 || index >= int64(len(l.chain)) {
		return nil, NewErrorf(ErrorTypePersistence, "block with index %d not found", index)
	}
	return l.chain[index], nil
}

// GetBlockByHash returns the block with the given sealed hash.
func (l *Ledger) GetBlockByHash(hash string) (*Block, error) {
	if l.index != nil {
		return l.index.GetBlockByHash(hash)
	}
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, block := range l.chain {
		if block.Hash == hash {
			return block, nil
		}
	}
	return nil, NewErrorf(ErrorTypePersistence, "block with hash %s not found", hash)
}

// GetLength returns the number of sealed blocks in the chain.
func (l *Ledger) GetLength() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.chain)
}

// PendingCount returns the current pending-queue length.
func (l *Ledger) PendingCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.pending)
}

// Difficulty returns the configured mining difficulty.
func (l *Ledger) Difficulty() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.difficulty
}
