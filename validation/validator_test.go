package validation

import (
	"strings"
	"testing"
	"time"

	"finledger_go/ledger"
)

func futureDueDate() string {
	return time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339)
}

func validInvoicePayload() map[string]any {
	return map[string]any{
		"client_id": "client-1",
		"amount":    150.0,
		"currency":  "USD",
		"line_items": []any{
			map[string]any{"description": "consulting", "quantity": 3.0, "rate": 50.0},
		},
		"due_date": futureDueDate(),
	}
}

func TestValidateInvoice(t *testing.T) {
	v := NewTransactionValidator()

	t.Run("ValidInvoice", func(t *testing.T) {
		ok, reason := v.Validate(ledger.TxInvoice, validInvoicePayload())
		if !ok {
			t.Errorf("Expected valid invoice to pass, got: %s", reason)
		}
	})

	t.Run("LineItemMismatch", func(t *testing.T) {
		payload := validInvoicePayload()
		payload["line_items"] = []any{
			map[string]any{"quantity": 2.0, "rate": 50.0},
		}
		ok, reason := v.Validate(ledger.TxInvoice, payload)
		if ok {
			t.Fatalf("Expected mismatched line items to fail")
		}
		if !strings.Contains(reason, "doesn't match") {
			t.Errorf("Expected mismatch reason, got: %s", reason)
		}
	})

	t.Run("ToleranceAccepted", func(t *testing.T) {
		payload := validInvoicePayload()
		payload["amount"] = 150.009
		if ok, reason := v.Validate(ledger.TxInvoice, payload); !ok {
			t.Errorf("Expected sub-cent mismatch within tolerance to pass, got: %s", reason)
		}
	})

	t.Run("MissingField", func(t *testing.T) {
		payload := validInvoicePayload()
		delete(payload, "client_id")
		ok, reason := v.Validate(ledger.TxInvoice, payload)
		if ok || !strings.Contains(reason, "client_id") {
			t.Errorf("Expected missing client_id to fail with its name, got ok=%v reason=%s", ok, reason)
		}
	})

	t.Run("InvalidCurrency", func(t *testing.T) {
		payload := validInvoicePayload()
		payload["currency"] = "JPY"
		if ok, _ := v.Validate(ledger.TxInvoice, payload); ok {
			t.Errorf("Expected unsupported currency to fail")
		}
	})

	t.Run("PastDueDate", func(t *testing.T) {
		payload := validInvoicePayload()
		payload["due_date"] = time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
		ok, reason := v.Validate(ledger.TxInvoice, payload)
		if ok || !strings.Contains(reason, "past") {
			t.Errorf("Expected past due date to fail, got ok=%v reason=%s", ok, reason)
		}
	})

	t.Run("NonPositiveLineItem", func(t *testing.T) {
		payload := validInvoicePayload()
		payload["line_items"] = []any{
			map[string]any{"quantity": -3.0, "rate": -50.0},
		}
		if ok, _ := v.Validate(ledger.TxInvoice, payload); ok {
			t.Errorf("Expected negative quantity and rate to fail")
		}
	})
}

func TestValidatePayment(t *testing.T) {
	v := NewTransactionValidator()
	base := func() map[string]any {
		return map[string]any{
			"invoice_id":     "inv-1",
			"amount":         200.0,
			"currency":       "USD",
			"payment_method": "bank_transfer",
		}
	}

	t.Run("Valid", func(t *testing.T) {
		if ok, reason := v.Validate(ledger.TxPayment, base()); !ok {
			t.Errorf("Expected valid payment to pass, got: %s", reason)
		}
	})

	t.Run("BadMethod", func(t *testing.T) {
		payload := base()
		payload["payment_method"] = "barter"
		ok, reason := v.Validate(ledger.TxPayment, payload)
		if ok || !strings.Contains(reason, "barter") {
			t.Errorf("Expected invalid method to fail naming it, got ok=%v reason=%s", ok, reason)
		}
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		payload := base()
		payload["amount"] = 0.0
		if ok, _ := v.Validate(ledger.TxPayment, payload); ok {
			t.Errorf("Expected zero amount to fail")
		}
	})
}

func TestValidateExpense(t *testing.T) {
	v := NewTransactionValidator()
	base := func() map[string]any {
		return map[string]any{
			"amount":      50.0,
			"currency":    "USD",
			"category":    "travel",
			"description": "taxi to client site",
		}
	}

	t.Run("Valid", func(t *testing.T) {
		if ok, reason := v.Validate(ledger.TxExpense, base()); !ok {
			t.Errorf("Expected valid expense to pass, got: %s", reason)
		}
	})

	t.Run("BadCategory", func(t *testing.T) {
		payload := base()
		payload["category"] = "bribes"
		if ok, _ := v.Validate(ledger.TxExpense, payload); ok {
			t.Errorf("Expected unknown category to fail")
		}
	})

	t.Run("ShortDescription", func(t *testing.T) {
		payload := base()
		payload["description"] = "ab"
		if ok, _ := v.Validate(ledger.TxExpense, payload); ok {
			t.Errorf("Expected 2-character description to fail")
		}
	})
}

func TestValidateTimeEntry(t *testing.T) {
	v := NewTransactionValidator()
	base := func() map[string]any {
		return map[string]any{
			"project_id":  "proj-1",
			"duration":    2.5,
			"description": "0123456789",
		}
	}

	t.Run("TenCharDescriptionAccepted", func(t *testing.T) {
		if ok, reason := v.Validate(ledger.TxTimeEntry, base()); !ok {
			t.Errorf("Expected 10-character description to pass, got: %s", reason)
		}
	})

	t.Run("NineCharDescriptionRejected", func(t *testing.T) {
		payload := base()
		payload["description"] = "012345678"
		if ok, _ := v.Validate(ledger.TxTimeEntry, payload); ok {
			t.Errorf("Expected 9-character description to fail")
		}
	})

	t.Run("NonPositiveDuration", func(t *testing.T) {
		payload := base()
		payload["duration"] = -1.0
		if ok, _ := v.Validate(ledger.TxTimeEntry, payload); ok {
			t.Errorf("Expected negative duration to fail")
		}
	})
}

func TestValidateCreditAndRefund(t *testing.T) {
	v := NewTransactionValidator()

	t.Run("ValidCredit", func(t *testing.T) {
		payload := map[string]any{"invoice_id": "inv-1", "amount": 25.0, "reason": "overbilled"}
		if ok, reason := v.Validate(ledger.TxCredit, payload); !ok {
			t.Errorf("Expected valid credit to pass, got: %s", reason)
		}
	})

	t.Run("RefundMissingPaymentID", func(t *testing.T) {
		payload := map[string]any{"amount": 25.0, "reason": "duplicate charge"}
		ok, reason := v.Validate(ledger.TxRefund, payload)
		if ok || !strings.Contains(reason, "payment_id") {
			t.Errorf("Expected missing payment_id to fail, got ok=%v reason=%s", ok, reason)
		}
	})
}

func TestValidateUnknownKind(t *testing.T) {
	v := NewTransactionValidator()
	ok, reason := v.Validate(ledger.TxKind("barter"), map[string]any{})
	if ok || !strings.Contains(reason, "barter") {
		t.Errorf("Expected unknown kind to fail naming the kind, got ok=%v reason=%s", ok, reason)
	}
}
