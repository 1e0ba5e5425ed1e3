// Package validation is the admission gate that runs ahead of the ledger:
// per-kind business-rule validation plus jurisdictional compliance policy.
// The ledger itself only enforces structural transaction shape, so everything
// accounting-specific lives here.
package validation

import (
	"fmt"
	"math"
	"time"

	"finledger_go/ledger"
)

// RuleFunc validates the payload of one transaction kind. It returns ok and,
// when not ok, a human-readable reason for the first failing rule.
type RuleFunc func(payload map[string]any) (bool, string)

// TransactionValidator dispatches payload validation over a closed mapping of
// transaction kinds to pure rule functions.
type TransactionValidator struct {
	rules map[ledger.TxKind]RuleFunc
}

// NewTransactionValidator creates a validator covering the business-facing
// transaction kinds.
func NewTransactionValidator() *TransactionValidator {
	return &TransactionValidator{
		rules: map[ledger.TxKind]RuleFunc{
			ledger.TxInvoice:   validateInvoice,
			ledger.TxPayment:   validatePayment,
			ledger.TxExpense:   validateExpense,
			ledger.TxCredit:    validateCredit,
			ledger.TxRefund:    validateRefund,
			ledger.TxTimeEntry: validateTimeEntry,
		},
	}
}

// Validate runs the rule set for the given kind. Rules short-circuit on the
// first violation; unknown kinds fail with a reason naming the kind.
func (v *TransactionValidator) Validate(kind ledger.TxKind, payload map[string]any) (bool, string) {
	rule, ok := v.rules[kind]
	if !ok {
		return false, fmt.Sprintf("unknown transaction kind: %s", kind)
	}
	return rule(payload)
}

var validCurrencies = []string{"USD", "CAD", "EUR", "GBP", "AUD"}

var validPaymentMethods = []string{
	"credit_card", "debit_card", "bank_transfer", "check", "cash", "crypto",
}

var validExpenseCategories = []string{
	"office_supplies", "travel", "meals", "entertainment",
	"utilities", "rent", "insurance", "professional_services",
	"software", "hardware", "marketing", "other",
}

// AmountTolerance is the rounding slack allowed when cross-checking invoice
// line items against the declared amount.
const AmountTolerance = 0.01

func missingField(payload map[string]any, fields ...string) (string, bool) {
	for _, field := range fields {
		if _, ok := payload[field]; !ok {
			return field, true
		}
	}
	return "", false
}

func numberField(payload map[string]any, field string) (float64, bool) {
	switch v := payload[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringField(payload map[string]any, field string) (string, bool) {
	s, ok := payload[field].(string)
	return s, ok
}

func validateInvoice(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "client_id", "amount", "currency", "line_items", "due_date"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}

	amount, ok := numberField(payload, "amount")
	if !ok || amount <= 0 {
		return false, "invoice amount must be positive"
	}

	currency, _ := stringField(payload, "currency")
	if !contains(validCurrencies, currency) {
		return false, fmt.Sprintf("invalid currency: %s", currency)
	}

	items, ok := payload["line_items"].([]any)
	if !ok || len(items) == 0 {
		return false, "invoice must have at least one line item"
	}

	var total float64
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return false, "line items must have quantity and rate"
		}
		quantity, qok := numberField(item, "quantity")
		rate, rok := numberField(item, "rate")
		if !qok || !rok {
			return false, "line items must have quantity and rate"
		}
		if quantity <= 0 || rate <= 0 {
			return false, "line item quantity and rate must be positive"
		}
		total += quantity * rate
	}

	if math.Abs(total-amount) > AmountTolerance {
		return false, fmt.Sprintf("line items total (%g) doesn't match invoice amount (%g)", total, amount)
	}

	dueDateStr, _ := stringField(payload, "due_date")
	dueDate, err := time.Parse(time.RFC3339, dueDateStr)
	if err != nil {
		return false, "invalid due date format"
	}
	if dueDate.Before(time.Now()) {
		return false, "due date cannot be in the past"
	}

	return true, ""
}

func validatePayment(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "invoice_id", "amount", "currency", "payment_method"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}

	amount, ok := numberField(payload, "amount")
	if !ok || amount <= 0 {
		return false, "payment amount must be positive"
	}

	method, _ := stringField(payload, "payment_method")
	if !contains(validPaymentMethods, method) {
		return false, fmt.Sprintf("invalid payment method: %s", method)
	}

	return true, ""
}

func validateExpense(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "amount", "currency", "category", "description"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}

	amount, ok := numberField(payload, "amount")
	if !ok || amount <= 0 {
		return false, "expense amount must be positive"
	}

	category, _ := stringField(payload, "category")
	if !contains(validExpenseCategories, category) {
		return false, fmt.Sprintf("invalid expense category: %s", category)
	}

	description, _ := stringField(payload, "description")
	if len(description) < 3 {
		return false, "expense description must be at least 3 characters"
	}

	return true, ""
}

func validateCredit(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "invoice_id", "amount", "reason"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}
	if amount, ok := numberField(payload, "amount"); !ok || amount <= 0 {
		return false, "credit amount must be positive"
	}
	return true, ""
}

func validateRefund(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "payment_id", "amount", "reason"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}
	if amount, ok := numberField(payload, "amount"); !ok || amount <= 0 {
		return false, "refund amount must be positive"
	}
	return true, ""
}

func validateTimeEntry(payload map[string]any) (bool, string) {
	if field, missing := missingField(payload, "project_id", "duration", "description"); missing {
		return false, fmt.Sprintf("missing required field: %s", field)
	}

	if duration, ok := numberField(payload, "duration"); !ok || duration <= 0 {
		return false, "duration must be positive"
	}

	description, _ := stringField(payload, "description")
	if len(description) < 10 {
		return false, "time entry description must be at least 10 characters"
	}

	return true, ""
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
