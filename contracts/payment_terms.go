package contracts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"finledger_go/ledger"
	"finledger_go/utils"
)

// PaymentTerm defines the payment terms attached to one invoice.
type PaymentTerm struct {
	TermID             string     `json:"term_id"`
	InvoiceID          string     `json:"invoice_id"`
	DueDate            time.Time  `json:"due_date"`
	DiscountPercentage float64    `json:"discount_percentage,omitempty"`
	DiscountDeadline   *time.Time `json:"discount_deadline,omitempty"`
	LateFeePercentage  float64    `json:"late_fee_percentage,omitempty"`
	LateFeeGraceDays   int        `json:"late_fee_grace_days,omitempty"`
}

// PaymentReminder is one scheduled reminder for an unpaid invoice.
type PaymentReminder struct {
	ReminderID   string    `json:"reminder_id"`
	InvoiceID    string    `json:"invoice_id"`
	ReminderDate time.Time `json:"reminder_date"`
	ReminderType string    `json:"reminder_type"`
	Sent         bool      `json:"sent"`
}

// PaymentResult is the outcome of processing one payment against terms.
type PaymentResult struct {
	InvoiceID       string  `json:"invoice_id"`
	PaymentAmount   float64 `json:"payment_amount"`
	AppliedDiscount float64 `json:"applied_discount"`
	AppliedLateFee  float64 `json:"applied_late_fee"`
	NetAmount       float64 `json:"net_amount"`
	Reason          string  `json:"reason,omitempty"`
}

/**
 * PaymentTermsContract tracks per-invoice payment terms and applies early
 * payment discounts and late fees when payments arrive. Term creation and
 * payment processing are recorded as smart_contract transactions; reminder
 * batches as invoice_action transactions.
 */
type PaymentTermsContract struct {
	mutex     sync.Mutex
	chain     LedgerAPI
	terms     map[string]*PaymentTerm
	reminders map[string]*PaymentReminder
}

// reminderSchedule maps reminder escalation to day offsets relative to the
// due date (negative means after due).
var reminderSchedule = map[string][]int{
	"friendly": {14, 7},
	"urgent":   {3, 1},
	"final":    {-1, -7},
}

// NewPaymentTermsContract creates the contract bound to a ledger.
func NewPaymentTermsContract(chain LedgerAPI) *PaymentTermsContract {
	return &PaymentTermsContract{
		chain:     chain,
		terms:     make(map[string]*PaymentTerm),
		reminders: make(map[string]*PaymentReminder),
	}
}

// CreateTerms attaches payment terms to an invoice and schedules reminders.
// discountPct/discountDays define an early payment discount (zero disables);
// lateFeePct/graceDays define a late fee (zero disables).
func (c *PaymentTermsContract) CreateTerms(invoiceID string, dueDays int, discountPct float64, discountDays int, lateFeePct float64, graceDays int) (string, error) {
	if invoiceID == "" {
		return "", ledger.NewError(ledger.ErrorTypeValidation, "invoice_id is required")
	}
	if dueDays <= 0 {
		dueDays = DefaultPaymentTermsDays
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	term := &PaymentTerm{
		TermID:            fmt.Sprintf("terms_%d", now.UnixMicro()),
		InvoiceID:         invoiceID,
		DueDate:           now.Add(time.Duration(dueDays) * 24 * time.Hour),
		LateFeePercentage: lateFeePct,
		LateFeeGraceDays:  graceDays,
	}
	if discountPct > 0 {
		deadline := now.Add(time.Duration(discountDays) * 24 * time.Hour)
		term.DiscountPercentage = discountPct
		term.DiscountDeadline = &deadline
	}

	c.terms[term.TermID] = term
	c.scheduleRemindersLocked(invoiceID, term.DueDate)

	tx := ledger.NewTransaction(term.TermID, ledger.TxSmartContract, map[string]any{
		"contract_type": "payment_terms",
		"action":        "create",
		"invoice_id":    invoiceID,
		"due_date":      term.DueDate.Format(time.RFC3339),
	})
	if _, err := c.chain.Admit(tx); err != nil {
		delete(c.terms, term.TermID)
		return "", err
	}

	return term.TermID, nil
}

func (c *PaymentTermsContract) scheduleRemindersLocked(invoiceID string, dueDate time.Time) {
	now := time.Now()
	for reminderType, offsets := range reminderSchedule {
		for _, days := range offsets {
			reminderDate := dueDate.Add(-time.Duration(days) * 24 * time.Hour)
			if reminderDate.Before(now) {
				continue
			}
			reminder := &PaymentReminder{
				ReminderID:   fmt.Sprintf("reminder_%s_%s_%d", invoiceID, reminderType, days),
				InvoiceID:    invoiceID,
				ReminderDate: reminderDate,
				ReminderType: reminderType,
			}
			c.reminders[reminder.ReminderID] = reminder
		}
	}
}

// ProcessPayment applies the invoice's terms to a payment made at paidAt:
// an early payment discount if within the discount window, a late fee if past
// due and grace, otherwise the amount passes through unchanged. The result is
// recorded on the chain and future reminders for the invoice are cancelled.
func (c *PaymentTermsContract) ProcessPayment(invoiceID string, amount float64, paidAt time.Time) (*PaymentResult, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	term := c.findTermLocked(invoiceID)
	if term == nil {
		return nil, ledger.NewErrorf(ledger.ErrorTypeValidation, "no payment terms for invoice %s", invoiceID)
	}

	result := &PaymentResult{
		InvoiceID:     invoiceID,
		PaymentAmount: amount,
		NetAmount:     amount,
	}

	if term.DiscountPercentage > 0 && term.DiscountDeadline != nil && !paidAt.After(*term.DiscountDeadline) {
		discount := RoundToCents(amount * term.DiscountPercentage / 100)
		result.AppliedDiscount = discount
		result.NetAmount = RoundToCents(amount - discount)
		result.Reason = fmt.Sprintf("early payment by %s", term.DiscountDeadline.Format(time.RFC3339))
	} else if paidAt.After(term.DueDate) {
		daysLate := int(paidAt.Sub(term.DueDate).Hours() / 24)
		if daysLate > term.LateFeeGraceDays && term.LateFeePercentage > 0 {
			fee := RoundToCents(amount * term.LateFeePercentage / 100)
			result.AppliedLateFee = fee
			result.NetAmount = RoundToCents(amount + fee)
			result.Reason = fmt.Sprintf("%d days late", daysLate)
		}
	}

	tx := ledger.NewTransaction(
		fmt.Sprintf("payment_terms_%d", time.Now().UnixMicro()),
		ledger.TxSmartContract,
		map[string]any{
			"contract_type":    "payment_terms",
			"action":           "payment_processed",
			"invoice_id":       invoiceID,
			"payment_amount":   result.PaymentAmount,
			"applied_discount": result.AppliedDiscount,
			"applied_late_fee": result.AppliedLateFee,
			"net_amount":       result.NetAmount,
		},
	)
	if _, err := c.chain.Admit(tx); err != nil {
		return nil, err
	}

	c.cancelRemindersLocked(invoiceID)
	return result, nil
}

func (c *PaymentTermsContract) findTermLocked(invoiceID string) *PaymentTerm {
	for _, term := range c.terms {
		if term.InvoiceID == invoiceID {
			return term
		}
	}
	return nil
}

func (c *PaymentTermsContract) cancelRemindersLocked(invoiceID string) {
	for _, reminder := range c.reminders {
		if reminder.InvoiceID == invoiceID {
			reminder.Sent = true
		}
	}
}

// CheckReminders marks reminders whose date has passed as sent and records
// the batch as an invoice_action transaction. It returns the reminders fired.
func (c *PaymentTermsContract) CheckReminders() ([]*PaymentReminder, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	due := []*PaymentReminder{}
	for _, reminder := range c.reminders {
		if !reminder.Sent && !reminder.ReminderDate.After(now) {
			reminder.Sent = true
			due = append(due, reminder)
		}
	}
	if len(due) == 0 {
		return due, nil
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ReminderDate.Before(due[j].ReminderDate) })

	ids := make([]any, 0, len(due))
	for _, reminder := range due {
		ids = append(ids, reminder.ReminderID)
	}
	tx := ledger.NewTransaction(
		fmt.Sprintf("reminders_%d", now.UnixMicro()),
		ledger.TxInvoiceAction,
		map[string]any{
			"action":         "reminders_sent",
			"reminder_count": len(due),
			"reminders":      ids,
		},
	)
	if _, err := c.chain.Admit(tx); err != nil {
		return nil, err
	}

	utils.LogInfo("Sent %d payment reminders", len(due))
	return due, nil
}

// PaymentStatus summarizes where an invoice stands against its terms.
func (c *PaymentTermsContract) PaymentStatus(invoiceID string) (map[string]any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	term := c.findTermLocked(invoiceID)
	if term == nil {
		return nil, ledger.NewErrorf(ledger.ErrorTypeValidation, "no payment terms for invoice %s", invoiceID)
	}

	now := time.Now()
	overdue := now.After(term.DueDate)
	daysUntilDue := int(term.DueDate.Sub(now).Hours() / 24)

	status := map[string]any{
		"invoice_id":     invoiceID,
		"due_date":       term.DueDate.Format(time.RFC3339),
		"is_overdue":     overdue,
		"days_until_due": 0,
		"days_overdue":   0,
	}
	if overdue {
		status["days_overdue"] = -daysUntilDue
	} else {
		status["days_until_due"] = daysUntilDue
	}

	if term.DiscountPercentage > 0 && term.DiscountDeadline != nil {
		status["discount_available"] = !now.After(*term.DiscountDeadline)
	}
	if term.LateFeePercentage > 0 {
		status["late_fee_applies"] = overdue && int(now.Sub(term.DueDate).Hours()/24) > term.LateFeeGraceDays
	}
	return status, nil
}
