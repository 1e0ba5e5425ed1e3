// Package contracts implements the automated bookkeeping contracts that run
// on top of the ledger: recurring invoice generation, payment terms
// enforcement, tax withholding calculation, and per-entity audit trails.
// Each contract records its effects as transactions so the chain stays the
// single source of truth.
package contracts

import (
	"finledger_go/ledger"
)

// LedgerAPI is the slice of ledger behavior the contracts need. *ledger.Ledger
// satisfies it; tests substitute a recording stub.
type LedgerAPI interface {
	Admit(tx *ledger.Transaction) (string, error)
	History(kindFilter ledger.TxKind) []*ledger.Transaction
	GetLatestBlock() *ledger.Block
}
