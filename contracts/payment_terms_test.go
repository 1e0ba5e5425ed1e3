package contracts

import (
	"testing"
	"time"

	"finledger_go/ledger"
)

func TestPaymentTermsProcessing(t *testing.T) {
	t.Run("EarlyPaymentDiscount", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		if _, err := c.CreateTerms("inv-1", 30, 2.0, 10, 5.0, 3); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}

		result, err := c.ProcessPayment("inv-1", 1000.0, time.Now())
		if err != nil {
			t.Fatalf("ProcessPayment failed: %v", err)
		}
		if result.AppliedDiscount != 20.0 {
			t.Errorf("Expected 2%% discount of 20.00, got %v", result.AppliedDiscount)
		}
		if result.NetAmount != 980.0 {
			t.Errorf("Expected net 980.00, got %v", result.NetAmount)
		}
		if result.AppliedLateFee != 0 {
			t.Errorf("Expected no late fee on early payment")
		}
	})

	t.Run("LateFeeAfterGrace", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		if _, err := c.CreateTerms("inv-2", 1, 0, 0, 5.0, 2); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}

		result, err := c.ProcessPayment("inv-2", 1000.0, time.Now().Add(10*24*time.Hour))
		if err != nil {
			t.Fatalf("ProcessPayment failed: %v", err)
		}
		if result.AppliedLateFee != 50.0 {
			t.Errorf("Expected 5%% late fee of 50.00, got %v", result.AppliedLateFee)
		}
		if result.NetAmount != 1050.0 {
			t.Errorf("Expected net 1050.00, got %v", result.NetAmount)
		}
	})

	t.Run("WithinGraceNoFee", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		if _, err := c.CreateTerms("inv-3", 1, 0, 0, 5.0, 5); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}

		result, err := c.ProcessPayment("inv-3", 1000.0, time.Now().Add(3*24*time.Hour))
		if err != nil {
			t.Fatalf("ProcessPayment failed: %v", err)
		}
		if result.AppliedLateFee != 0 || result.NetAmount != 1000.0 {
			t.Errorf("Expected untouched amount within grace period, got %+v", result)
		}
	})

	t.Run("UnknownInvoiceRejected", func(t *testing.T) {
		c := NewPaymentTermsContract(&stubLedger{})
		if _, err := c.ProcessPayment("missing", 100.0, time.Now()); !ledger.IsErrorType(err, ledger.ErrorTypeValidation) {
			t.Errorf("Expected VALIDATION_ERROR for unknown invoice, got %v", err)
		}
	})

	t.Run("PaymentRecordedOnChain", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		if _, err := c.CreateTerms("inv-4", 30, 0, 0, 0, 0); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}
		if _, err := c.ProcessPayment("inv-4", 250.0, time.Now()); err != nil {
			t.Fatalf("ProcessPayment failed: %v", err)
		}

		tx := chain.lastAdmitted()
		if tx.Kind != ledger.TxSmartContract {
			t.Fatalf("Expected smart_contract transaction, got %s", tx.Kind)
		}
		if tx.Payload["action"] != "payment_processed" {
			t.Errorf("Expected payment_processed action, got %v", tx.Payload["action"])
		}
	})
}

func TestPaymentReminders(t *testing.T) {
	t.Run("NoRemindersBeforeSchedule", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		// Due in 60 days, so the earliest reminder (14 days before) is not due.
		if _, err := c.CreateTerms("inv-5", 60, 0, 0, 0, 0); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}

		due, err := c.CheckReminders()
		if err != nil {
			t.Fatalf("CheckReminders failed: %v", err)
		}
		if len(due) != 0 {
			t.Errorf("Expected no reminders due yet, got %d", len(due))
		}
	})

	t.Run("DueRemindersFireOnceAndRecord", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		// Due in 10 days: friendly reminder at 7 days before is in the
		// future, but the 14-day offset lands in the past and is skipped
		// at scheduling, so force a due reminder directly.
		if _, err := c.CreateTerms("inv-6", 10, 0, 0, 0, 0); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}
		c.reminders["manual"] = &PaymentReminder{
			ReminderID:   "manual",
			InvoiceID:    "inv-6",
			ReminderDate: time.Now().Add(-time.Hour),
			ReminderType: "urgent",
		}

		due, err := c.CheckReminders()
		if err != nil {
			t.Fatalf("CheckReminders failed: %v", err)
		}
		if len(due) != 1 {
			t.Fatalf("Expected one due reminder, got %d", len(due))
		}
		if chain.countKind(ledger.TxInvoiceAction) != 1 {
			t.Errorf("Expected reminder batch recorded as invoice_action")
		}

		again, err := c.CheckReminders()
		if err != nil {
			t.Fatalf("second CheckReminders failed: %v", err)
		}
		if len(again) != 0 {
			t.Errorf("Expected reminder to fire only once")
		}
	})

	t.Run("PaymentCancelsReminders", func(t *testing.T) {
		chain := &stubLedger{}
		c := NewPaymentTermsContract(chain)
		if _, err := c.CreateTerms("inv-7", 30, 0, 0, 0, 0); err != nil {
			t.Fatalf("CreateTerms failed: %v", err)
		}
		if _, err := c.ProcessPayment("inv-7", 100.0, time.Now()); err != nil {
			t.Fatalf("ProcessPayment failed: %v", err)
		}

		for _, reminder := range c.reminders {
			if reminder.InvoiceID == "inv-7" && !reminder.Sent {
				t.Errorf("Expected reminder %s cancelled after payment", reminder.ReminderID)
			}
		}
	})
}

func TestPaymentStatus(t *testing.T) {
	c := NewPaymentTermsContract(&stubLedger{})
	if _, err := c.CreateTerms("inv-8", 30, 2.0, 10, 5.0, 3); err != nil {
		t.Fatalf("CreateTerms failed: %v", err)
	}

	status, err := c.PaymentStatus("inv-8")
	if err != nil {
		t.Fatalf("PaymentStatus failed: %v", err)
	}
	if status["is_overdue"] != false {
		t.Errorf("Expected invoice not overdue")
	}
	if status["discount_available"] != true {
		t.Errorf("Expected early discount still available")
	}
	if _, err := c.PaymentStatus("missing"); !ledger.IsErrorType(err, ledger.ErrorTypeValidation) {
		t.Errorf("Expected VALIDATION_ERROR for unknown invoice, got %v", err)
	}
}
