package contracts

import (
	"fmt"
	"sync"
	"time"

	"finledger_go/ledger"
	"finledger_go/utils"
)

// RecurringInvoiceRule defines one recurring billing arrangement.
type RecurringInvoiceRule struct {
	RuleID        string           `json:"rule_id"`
	ClientID      string           `json:"client_id"`
	Amount        float64          `json:"amount"`
	Currency      string           `json:"currency"`
	Frequency     string           `json:"frequency"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	LineItems     []map[string]any `json:"line_items"`
	PaymentTerms  int              `json:"payment_terms"`
	Active        bool             `json:"active"`
	LastGenerated *time.Time       `json:"last_generated,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

/**
 * RecurringInvoiceContract generates invoice transactions on a schedule.
 * Rule lifecycle events (create, update, cancel) are themselves recorded as
 * smart_contract transactions so the chain carries the full rule history.
 *
 * Monthly frequency uses a 30-day interval rather than calendar months, so
 * generation dates drift slightly over a year.
 */
type RecurringInvoiceContract struct {
	mutex  sync.Mutex
	chain  LedgerAPI
	rules  map[string]*RecurringInvoiceRule
	deltas map[string]time.Duration
}

// DefaultPaymentTermsDays is applied when a rule omits payment terms.
const DefaultPaymentTermsDays = 30

// NewRecurringInvoiceContract creates the contract bound to a ledger.
func NewRecurringInvoiceContract(chain LedgerAPI) *RecurringInvoiceContract {
	return &RecurringInvoiceContract{
		chain: chain,
		rules: make(map[string]*RecurringInvoiceRule),
		deltas: map[string]time.Duration{
			"weekly":    7 * 24 * time.Hour,
			"biweekly":  14 * 24 * time.Hour,
			"monthly":   30 * 24 * time.Hour,
			"quarterly": 91 * 24 * time.Hour,
			"yearly":    365 * 24 * time.Hour,
		},
	}
}

// CreateRule registers a recurring invoice rule and records the creation on
// the chain. The returned rule ID keys all later updates.
func (c *RecurringInvoiceContract) CreateRule(rule *RecurringInvoiceRule) (string, error) {
	if rule == nil {
		return "", ledger.NewError(ledger.ErrorTypeInvalidTransaction, "rule is nil")
	}
	if _, ok := c.deltas[rule.Frequency]; !ok {
		return "", ledger.NewErrorf(ledger.ErrorTypeValidation, "unknown frequency: %s", rule.Frequency)
	}
	if rule.PaymentTerms <= 0 {
		rule.PaymentTerms = DefaultPaymentTermsDays
	}
	if rule.Metadata == nil {
		rule.Metadata = map[string]any{}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	rule.RuleID = fmt.Sprintf("recurring_%d", time.Now().UnixMicro())
	rule.Active = true
	c.rules[rule.RuleID] = rule

	tx := ledger.NewTransaction(
		fmt.Sprintf("contract_recurring_%s", rule.RuleID),
		ledger.TxSmartContract,
		map[string]any{
			"contract_type": "recurring_invoice_rule",
			"action":        "create",
			"rule_id":       rule.RuleID,
			"client_id":     rule.ClientID,
			"amount":        rule.Amount,
			"currency":      rule.Currency,
			"frequency":     rule.Frequency,
		},
	)
	if _, err := c.chain.Admit(tx); err != nil {
		delete(c.rules, rule.RuleID)
		return "", err
	}

	utils.LogInfo("Recurring invoice rule %s created for client %s (%s)", rule.RuleID, rule.ClientID, rule.Frequency)
	return rule.RuleID, nil
}

// UpdateRule applies a partial update to a rule and records it on the chain.
// Only amount, line items, payment terms, end date and active can change.
func (c *RecurringInvoiceContract) UpdateRule(ruleID string, updates map[string]any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	rule, ok := c.rules[ruleID]
	if !ok {
		return ledger.NewErrorf(ledger.ErrorTypeValidation, "unknown rule: %s", ruleID)
	}

	if amount, ok := updates["amount"].(float64); ok {
		rule.Amount = amount
	}
	if items, ok := updates["line_items"].([]map[string]any); ok {
		rule.LineItems = items
	}
	if terms, ok := updates["payment_terms"].(int); ok && terms > 0 {
		rule.PaymentTerms = terms
	}
	if end, ok := updates["end_date"].(time.Time); ok {
		rule.EndDate = &end
	}
	if active, ok := updates["active"].(bool); ok {
		rule.Active = active
	}

	tx := ledger.NewTransaction(
		fmt.Sprintf("contract_update_%d", time.Now().UnixMicro()),
		ledger.TxSmartContract,
		map[string]any{
			"contract_type": "recurring_invoice_rule",
			"action":        "update",
			"rule_id":       ruleID,
		},
	)
	_, err := c.chain.Admit(tx)
	return err
}

// CancelRule deactivates a rule. Cancellation is an update with active=false.
func (c *RecurringInvoiceContract) CancelRule(ruleID string) error {
	return c.UpdateRule(ruleID, map[string]any{"active": false})
}

// ActiveRules returns a snapshot of the currently active rules.
func (c *RecurringInvoiceContract) ActiveRules() []*RecurringInvoiceRule {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	active := make([]*RecurringInvoiceRule, 0, len(c.rules))
	for _, rule := range c.rules {
		if rule.Active {
			active = append(active, rule)
		}
	}
	return active
}

// CheckAndGenerate walks the rules and admits an invoice transaction for each
// rule whose next generation date has passed. Rules past their end date are
// deactivated. It returns the payloads of the invoices it generated.
func (c *RecurringInvoiceContract) CheckAndGenerate() ([]map[string]any, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	generated := []map[string]any{}

	for _, rule := range c.rules {
		if !rule.Active {
			continue
		}
		if rule.EndDate != nil && now.After(*rule.EndDate) {
			rule.Active = false
			continue
		}

		nextDate := rule.StartDate
		if rule.LastGenerated != nil {
			nextDate = rule.LastGenerated.Add(c.deltas[rule.Frequency])
		}
		if now.Before(nextDate) {
			continue
		}

		payload, err := c.generateInvoice(rule, now)
		if err != nil {
			utils.LogError("Failed to generate invoice for rule %s: %v", rule.RuleID, err)
			continue
		}
		generated = append(generated, payload)
		generatedAt := now
		rule.LastGenerated = &generatedAt
	}

	return generated, nil
}

func (c *RecurringInvoiceContract) generateInvoice(rule *RecurringInvoiceRule, now time.Time) (map[string]any, error) {
	dueDate := now.Add(time.Duration(rule.PaymentTerms) * 24 * time.Hour)

	lineItems := make([]any, 0, len(rule.LineItems))
	for _, item := range rule.LineItems {
		lineItems = append(lineItems, item)
	}

	payload := map[string]any{
		"client_id":         rule.ClientID,
		"amount":            rule.Amount,
		"currency":          rule.Currency,
		"line_items":        lineItems,
		"due_date":          dueDate.Format(time.RFC3339),
		"recurring_rule_id": rule.RuleID,
		"invoice_number":    invoiceNumber(rule.RuleID, now),
	}

	tx := ledger.NewTransaction(
		fmt.Sprintf("invoice_%d", time.Now().UnixMicro()),
		ledger.TxInvoice,
		payload,
	)
	tx.Metadata["generated_by"] = "recurring_invoice_contract"
	tx.Metadata["generation_date"] = now.Format(time.RFC3339)

	if _, err := c.chain.Admit(tx); err != nil {
		return nil, err
	}
	utils.LogInfo("Generated recurring invoice %s for client %s", payload["invoice_number"], rule.ClientID)
	return payload, nil
}

// invoiceNumber builds a human-facing number from the generation date and the
// tail of the rule ID, e.g. INV-20260830-123456.
func invoiceNumber(ruleID string, now time.Time) string {
	tail := ruleID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), tail)
}
