package validation

import (
	"fmt"
	"regexp"

	"finledger_go/ledger"
)

/**
 * ComplianceValidator enforces jurisdiction-specific reporting thresholds and
 * scans free-text payload fields for personally identifiable information.
 * It runs after business-rule validation and before admission.
 */
type ComplianceValidator struct {
	jurisdiction string
}

// Reporting thresholds for the US jurisdiction.
const (
	InvoiceTaxIDThreshold   = 600.0
	ExpenseReceiptThreshold = 75.0
)

var (
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardNumberPattern = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
)

// piiScanFields are the free-text payload fields checked for PII.
var piiScanFields = []string{"notes", "description", "memo"}

// NewComplianceValidator creates a validator for the given jurisdiction.
// Threshold rules currently apply to "US"; PII scanning applies everywhere.
func NewComplianceValidator(jurisdiction string) *ComplianceValidator {
	if jurisdiction == "" {
		jurisdiction = "US"
	}
	return &ComplianceValidator{jurisdiction: jurisdiction}
}

// Jurisdiction returns the jurisdiction this validator enforces.
func (c *ComplianceValidator) Jurisdiction() string {
	return c.jurisdiction
}

// Check applies compliance policy to a transaction payload. It returns ok and,
// when not ok, the first violated policy as a reason string.
func (c *ComplianceValidator) Check(kind ledger.TxKind, payload map[string]any) (bool, string) {
	if c.jurisdiction == "US" {
		if ok, reason := c.checkUSThresholds(kind, payload); !ok {
			return false, reason
		}
	}
	return c.scanPII(payload)
}

func (c *ComplianceValidator) checkUSThresholds(kind ledger.TxKind, payload map[string]any) (bool, string) {
	amount, _ := numberField(payload, "amount")

	switch kind {
	case ledger.TxInvoice:
		if amount > InvoiceTaxIDThreshold {
			if taxID, ok := stringField(payload, "client_tax_id"); !ok || taxID == "" {
				return false, fmt.Sprintf("invoices over %.0f require client_tax_id (1099 reporting)", InvoiceTaxIDThreshold)
			}
		}
	case ledger.TxExpense:
		if amount > ExpenseReceiptThreshold {
			if receipt, ok := stringField(payload, "receipt_url"); !ok || receipt == "" {
				return false, fmt.Sprintf("expenses over %.0f require receipt_url", ExpenseReceiptThreshold)
			}
		}
	}
	return true, ""
}

func (c *ComplianceValidator) scanPII(payload map[string]any) (bool, string) {
	for _, field := range piiScanFields {
		text, ok := stringField(payload, field)
		if !ok || text == "" {
			continue
		}
		if ssnPattern.MatchString(text) {
			return false, fmt.Sprintf("field %s appears to contain a social security number", field)
		}
		if cardNumberPattern.MatchString(text) {
			return false, fmt.Sprintf("field %s appears to contain a card number", field)
		}
	}
	return true, ""
}
