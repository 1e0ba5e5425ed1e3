package ledger

import (
	"os"
	"strconv"
)

// TxKind represents the kind of a financial transaction on the ledger
type TxKind string

const (
	TxInvoice        TxKind = "invoice"
	TxPayment        TxKind = "payment"
	TxExpense        TxKind = "expense"
	TxCredit         TxKind = "credit"
	TxRefund         TxKind = "refund"
	TxAdjustment     TxKind = "adjustment"
	TxTimeEntry      TxKind = "time_entry"
	TxGenesis        TxKind = "genesis"
	TxMiningReward   TxKind = "mining_reward"
	TxAuditTrail     TxKind = "audit_trail"
	TxSmartContract  TxKind = "smart_contract"
	TxInvoiceAction  TxKind = "invoice_action"
	TxTaxWithholding TxKind = "tax_withholding"
	TxClientRecord   TxKind = "client_record"
)

const (
	// DefaultDifficulty is the number of leading zero characters a sealed
	// block's hash must carry. It is deliberately low: the proof of work is a
	// local anti-tamper seal for a single-writer ledger, not adversarial
	// mining, and at this difficulty sealing is effectively instantaneous.
	DefaultDifficulty = 4
	// DefaultSealThreshold is the pending-queue length that triggers an
	// automatic seal during admission.
	DefaultSealThreshold = 10
	// MiningRewardAmount is the small reward credited to the miner tag for
	// maintaining the ledger.
	MiningRewardAmount = 0.001
	// GenesisPreviousHash is the sentinel previous hash of block 0.
	GenesisPreviousHash = "0"
	// DefaultMinerTag identifies seals triggered by the ledger itself.
	DefaultMinerTag = "system"
	// ChainFileName is the on-disk name of the persisted chain document.
	ChainFileName = "chain.json"
)

var recognizedKinds = map[TxKind]bool{
	TxInvoice:        true,
	TxPayment:        true,
	TxExpense:        true,
	TxCredit:         true,
	TxRefund:         true,
	TxAdjustment:     true,
	TxTimeEntry:      true,
	TxGenesis:        true,
	TxMiningReward:   true,
	TxAuditTrail:     true,
	TxSmartContract:  true,
	TxInvoiceAction:  true,
	TxTaxWithholding: true,
	TxClientRecord:   true,
}

// KindRecognized reports whether k is one of the closed set of transaction
// kinds the ledger admits.
func KindRecognized(k TxKind) bool {
	return recognizedKinds[k]
}

// GetDifficulty returns the mining difficulty, honoring the LEDGER_DIFFICULTY
// environment variable when it holds a valid non-negative integer.
func GetDifficulty() int {
	valStr := os.Getenv("LEDGER_DIFFICULTY")
	if valStr == "" {
		return DefaultDifficulty
	}
	valInt, err := strconv.Atoi(valStr)
	if err != nil || valInt < 0 {
		return DefaultDifficulty
	}
	return valInt
}

// GetSealThreshold returns the auto-seal threshold, honoring the
// LEDGER_SEAL_THRESHOLD environment variable when it holds a positive integer.
func GetSealThreshold() int {
	valStr := os.Getenv("LEDGER_SEAL_THRESHOLD")
	if valStr == "" {
		return DefaultSealThreshold
	}
	valInt, err := strconv.Atoi(valStr)
	if err != nil || valInt <= 0 {
		return DefaultSealThreshold
	}
	return valInt
}
