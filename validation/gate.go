package validation

import (
	"finledger_go/ledger"
)

/**
 * AdmissionGate chains business-rule validation and compliance policy into a
 * single pre-admission check. Structural shape (non-empty ID, timestamp,
 * recognized kind) is the ledger's own responsibility; the gate covers
 * everything semantic.
 */
type AdmissionGate struct {
	rules      *TransactionValidator
	compliance *ComplianceValidator
}

// NewAdmissionGate wires the standard rule set with a compliance validator
// for the given jurisdiction.
func NewAdmissionGate(jurisdiction string) *AdmissionGate {
	return &AdmissionGate{
		rules:      NewTransactionValidator(),
		compliance: NewComplianceValidator(jurisdiction),
	}
}

// Admit runs the full gate over a transaction. Internal kinds (genesis,
// mining rewards, contract-generated records) bypass business rules since
// they are produced by the engine itself, but still pass the PII scan.
func (g *AdmissionGate) Admit(tx *ledger.Transaction) error {
	if tx == nil {
		return ledger.NewError(ledger.ErrorTypeInvalidTransaction, "transaction is nil")
	}

	if isBusinessKind(tx.Kind) {
		if ok, reason := g.rules.Validate(tx.Kind, tx.Payload); !ok {
			return ledger.NewError(ledger.ErrorTypeValidation, reason).WithTxID(tx.ID)
		}
	}

	if ok, reason := g.compliance.Check(tx.Kind, tx.Payload); !ok {
		return ledger.NewError(ledger.ErrorTypeCompliance, reason).WithTxID(tx.ID)
	}

	return nil
}

func isBusinessKind(kind ledger.TxKind) bool {
	switch kind {
	case ledger.TxInvoice, ledger.TxPayment, ledger.TxExpense,
		ledger.TxCredit, ledger.TxRefund, ledger.TxTimeEntry:
		return true
	}
	return false
}
