package contracts

import (
	"fmt"
	"math"
	"sync"
	"time"

	"finledger_go/ledger"
)

/**
 * TaxWithholdingContract estimates the taxes to set aside for income and the
 * sales tax to collect on invoices, using simplified US and Canadian rate
 * tables. Every calculation is recorded as a tax_withholding transaction.
 * These are bookkeeping estimates, not filing-grade figures.
 */
type TaxWithholdingContract struct {
	mutex        sync.Mutex
	chain        LedgerAPI
	jurisdiction string
	withheld     map[string]float64
}

// Simplified US rates.
const (
	USSelfEmploymentRate   = 0.153
	USFederalEstimatedRate = 0.25
)

// Simplified Canadian rates.
const (
	CAFederalRate    = 0.15
	CAProvincialRate = 0.10
	CAGSTRate        = 0.05
)

var usStateIncomeRates = map[string]float64{
	"FL": 0.0,
	"CA": 0.093,
	"NY": 0.0685,
}

var usSalesTaxRates = map[string]float64{
	"FL": 0.06,
	"CA": 0.0725,
	"NY": 0.08,
}

// NewTaxWithholdingContract creates the contract for a jurisdiction
// ("US" or "CA"); unrecognized jurisdictions withhold nothing.
func NewTaxWithholdingContract(chain LedgerAPI, jurisdiction string) *TaxWithholdingContract {
	if jurisdiction == "" {
		jurisdiction = "US"
	}
	return &TaxWithholdingContract{
		chain:        chain,
		jurisdiction: jurisdiction,
		withheld:     make(map[string]float64),
	}
}

// RoundToCents rounds a money amount half-up to two decimal places.
func RoundToCents(amount float64) float64 {
	return math.Floor(amount*100+0.5) / 100
}

// CalculateWithholding computes the withholding breakdown for a transaction
// of the given kind and gross amount. Non-empty results are recorded on the
// chain. metadata supplies state/collect_sales_tax hints.
func (c *TaxWithholdingContract) CalculateWithholding(kind ledger.TxKind, amount float64, metadata map[string]any) (map[string]float64, error) {
	if amount <= 0 {
		return nil, ledger.NewError(ledger.ErrorTypeValidation, "amount must be positive")
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	var withholding map[string]float64
	switch c.jurisdiction {
	case "US":
		withholding = c.calculateUS(kind, amount, metadata)
	case "CA":
		withholding = c.calculateCanadian(kind, amount)
	default:
		withholding = map[string]float64{}
	}

	if len(withholding) > 0 {
		if err := c.record(kind, amount, withholding); err != nil {
			return nil, err
		}
	}
	return withholding, nil
}

func (c *TaxWithholdingContract) calculateUS(kind ledger.TxKind, amount float64, metadata map[string]any) map[string]float64 {
	withholding := map[string]float64{}
	state, _ := metadata["state"].(string)
	if state == "" {
		state = "FL"
	}

	switch kind {
	case ledger.TxPayment:
		withholding["self_employment_tax"] = RoundToCents(amount * USSelfEmploymentRate)
		withholding["federal_income_tax"] = RoundToCents(amount * USFederalEstimatedRate)
		if rate := usStateIncomeRates[state]; rate > 0 {
			withholding["state_income_tax"] = RoundToCents(amount * rate)
		}
	case ledger.TxInvoice:
		collect, _ := metadata["collect_sales_tax"].(bool)
		if !collect {
			return withholding
		}
		clientState, _ := metadata["client_state"].(string)
		if clientState == "" {
			clientState = state
		}
		if rate := usSalesTaxRates[clientState]; rate > 0 {
			withholding["sales_tax"] = RoundToCents(amount * rate)
		}
	}
	return withholding
}

func (c *TaxWithholdingContract) calculateCanadian(kind ledger.TxKind, amount float64) map[string]float64 {
	withholding := map[string]float64{}
	switch kind {
	case ledger.TxPayment:
		withholding["federal_income_tax"] = RoundToCents(amount * CAFederalRate)
		withholding["provincial_income_tax"] = RoundToCents(amount * CAProvincialRate)
	case ledger.TxInvoice:
		withholding["gst_hst"] = RoundToCents(amount * CAGSTRate)
	}
	return withholding
}

func (c *TaxWithholdingContract) record(kind ledger.TxKind, amount float64, withholding map[string]float64) error {
	var total float64
	breakdown := map[string]any{}
	for category, value := range withholding {
		total += value
		breakdown[category] = value
	}
	total = RoundToCents(total)

	withholdingID := fmt.Sprintf("withholding_%d", time.Now().UnixMicro())
	tx := ledger.NewTransaction(withholdingID, ledger.TxTaxWithholding, map[string]any{
		"original_transaction_kind": string(kind),
		"gross_amount":              amount,
		"withholdings":              breakdown,
		"total_withheld":            total,
		"net_amount":                RoundToCents(amount - total),
		"jurisdiction":              c.jurisdiction,
	})
	if _, err := c.chain.Admit(tx); err != nil {
		return err
	}

	c.mutex.Lock()
	c.withheld[withholdingID] = total
	c.mutex.Unlock()
	return nil
}

// WithholdingBalance returns the running total set aside by this contract.
func (c *TaxWithholdingContract) WithholdingBalance() float64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var total float64
	for _, amount := range c.withheld {
		total += amount
	}
	return RoundToCents(total)
}

// TaxSummary aggregates tax_withholding transactions on the chain between
// start and end, returning total income, total withheld and a per-category
// breakdown.
func (c *TaxWithholdingContract) TaxSummary(start, end time.Time) map[string]any {
	startMicros := start.UnixMicro()
	endMicros := end.UnixMicro()

	var totalIncome, totalWithheld float64
	byCategory := map[string]float64{}

	for _, tx := range c.chain.History(ledger.TxTaxWithholding) {
		if tx.Timestamp < startMicros || tx.Timestamp > endMicros {
			continue
		}
		if gross, ok := tx.Payload["gross_amount"].(float64); ok {
			totalIncome += gross
		}
		if withheld, ok := tx.Payload["total_withheld"].(float64); ok {
			totalWithheld += withheld
		}
		if breakdown, ok := tx.Payload["withholdings"].(map[string]any); ok {
			for category, value := range breakdown {
				if amount, ok := value.(float64); ok {
					byCategory[category] += amount
				}
			}
		}
	}

	categories := map[string]any{}
	for category, amount := range byCategory {
		categories[category] = RoundToCents(amount)
	}
	return map[string]any{
		"period_start":   start.Format(time.RFC3339),
		"period_end":     end.Format(time.RFC3339),
		"total_income":   RoundToCents(totalIncome),
		"total_withheld": RoundToCents(totalWithheld),
		"by_category":    categories,
	}
}
