package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"finledger_go/contracts"
	"finledger_go/crypto"
	"finledger_go/ledger"
	"finledger_go/metrics"
	"finledger_go/utils"
)

// TransactionRequest is the POST /tx body.
type TransactionRequest struct {
	ID       string         `json:"id,omitempty"`
	Kind     string         `json:"kind"`
	Payload  map[string]any `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.LogError("Error writing response: %v", err)
	}
}

// writeError maps ledger error types onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsErrorType(err, ledger.ErrorTypeInvalidTransaction):
		status = http.StatusBadRequest
	case ledger.IsErrorType(err, ledger.ErrorTypeValidation):
		status = http.StatusUnprocessableEntity
	case ledger.IsErrorType(err, ledger.ErrorTypeCompliance):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// PingHandler responds to health checks
func (s *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"instance_id": s.InstanceID,
		"height":      s.Ledger.GetLength(),
	})
}

// TransactionHandler validates and admits a transaction
func (s *Server) TransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogError("Error decoding transaction request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	id := req.ID
	if id == "" {
		id = crypto.NewTransactionID(s.InstanceID)
	}
	tx := ledger.NewTransaction(id, ledger.TxKind(req.Kind), req.Payload)
	for key, value := range req.Metadata {
		tx.Metadata[key] = value
	}

	if err := s.Gate.Admit(tx); err != nil {
		stage := "validation"
		if ledger.IsErrorType(err, ledger.ErrorTypeCompliance) {
			stage = "compliance"
		}
		metrics.TransactionsRejected.WithLabelValues(stage).Inc()
		writeError(w, err)
		return
	}

	txID, err := s.Ledger.Admit(tx)
	if err != nil {
		metrics.TransactionsRejected.WithLabelValues("shape").Inc()
		writeError(w, err)
		return
	}

	metrics.TransactionsAdmitted.WithLabelValues(string(tx.Kind)).Inc()
	metrics.PendingDepthGauge.Set(float64(s.Ledger.PendingCount()))
	metrics.ChainHeightGauge.Set(float64(s.Ledger.GetLength()))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"transaction_id": txID,
		"pending":        s.Ledger.PendingCount(),
	})
}

// PendingHandler returns the pending queue depth
func (s *Server) PendingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": s.Ledger.PendingCount(),
	})
}

// SealHandler forces sealing of pending transactions into a block
func (s *Server) SealHandler(w http.ResponseWriter, r *http.Request) {
	block, err := s.Ledger.Seal(s.MinerTag)
	if err != nil {
		writeError(w, err)
		return
	}
	if block == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"sealed":  false,
			"message": "no pending transactions",
		})
		return
	}

	metrics.PendingDepthGauge.Set(float64(s.Ledger.PendingCount()))
	metrics.ChainHeightGauge.Set(float64(s.Ledger.GetLength()))

	writeJSON(w, http.StatusCreated, map[string]any{
		"sealed": true,
		"block":  block,
	})
}

// HistoryHandler returns transaction history, optionally filtered by kind
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	kind := ledger.TxKind(r.URL.Query().Get("kind"))
	history := s.Ledger.History(kind)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(history),
		"transactions": history,
	})
}

// BalanceHandler returns the balance sheet derived from the chain
func (s *Server) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Ledger.BalanceSheet())
}

// ValidateChainHandler re-verifies every link of the chain
func (s *Server) ValidateChainHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  s.Ledger.ValidateChain(),
		"height": s.Ledger.GetLength(),
	})
}

// LatestBlockHandler returns the chain tip
func (s *Server) LatestBlockHandler(w http.ResponseWriter, r *http.Request) {
	block := s.Ledger.GetLatestBlock()
	if block == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "chain is empty"})
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// BlockByIndexHandler returns a block by its position in the chain
func (s *Server) BlockByIndexHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseInt(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid block index", http.StatusBadRequest)
		return
	}
	block, err := s.Ledger.GetBlockByIndex(index)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// BlockByHashHandler returns a block by its hash
func (s *Server) BlockByHashHandler(w http.ResponseWriter, r *http.Request) {
	block, err := s.Ledger.GetBlockByHash(mux.Vars(r)["hash"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// CreateRecurringRuleHandler registers a recurring invoice rule
func (s *Server) CreateRecurringRuleHandler(w http.ResponseWriter, r *http.Request) {
	var rule contracts.RecurringInvoiceRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	ruleID, err := s.Recurring.CreateRule(&rule)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ContractTransactions.WithLabelValues("recurring_invoice").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"rule_id": ruleID})
}

// ListRecurringRulesHandler returns the active recurring invoice rules
func (s *Server) ListRecurringRulesHandler(w http.ResponseWriter, r *http.Request) {
	rules := s.Recurring.ActiveRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(rules),
		"rules": rules,
	})
}

// CreateTermsHandler attaches payment terms to an invoice
func (s *Server) CreateTermsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID    string  `json:"invoice_id"`
		DueDays      int     `json:"due_days"`
		DiscountPct  float64 `json:"discount_pct"`
		DiscountDays int     `json:"discount_days"`
		LateFeePct   float64 `json:"late_fee_pct"`
		GraceDays    int     `json:"grace_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	termID, err := s.Terms.CreateTerms(req.InvoiceID, req.DueDays, req.DiscountPct, req.DiscountDays, req.LateFeePct, req.GraceDays)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ContractTransactions.WithLabelValues("payment_terms").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"term_id": termID})
}

// ProcessPaymentHandler applies payment terms to an incoming payment
func (s *Server) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID string  `json:"invoice_id"`
		Amount    float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result, err := s.Terms.ProcessPayment(req.InvoiceID, req.Amount, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ContractTransactions.WithLabelValues("payment_terms").Inc()
	writeJSON(w, http.StatusOK, result)
}

// TaxWithholdingHandler calculates and records withholding for an amount
func (s *Server) TaxWithholdingHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string         `json:"kind"`
		Amount   float64        `json:"amount"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	withholding, err := s.Tax.CalculateWithholding(ledger.TxKind(req.Kind), req.Amount, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ContractTransactions.WithLabelValues("tax_withholding").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"withholdings": withholding,
		"balance":      s.Tax.WithholdingBalance(),
	})
}

// AuditLogHandler appends an audit entry for an entity
func (s *Server) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action     string         `json:"action"`
		EntityType string         `json:"entity_type"`
		EntityID   string         `json:"entity_id"`
		UserID     string         `json:"user_id"`
		Changes    map[string]any `json:"changes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	entryID, err := s.Audit.LogAction(req.Action, req.EntityType, req.EntityID, req.UserID, req.Changes)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ContractTransactions.WithLabelValues("audit_trail").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"entry_id": entryID})
}

// AuditHistoryHandler returns an entity's audit trail and verification status
func (s *Server) AuditHistoryHandler(w http.ResponseWriter, r *http.Request) {
	entityID := mux.Vars(r)["entityId"]
	entries := s.Audit.EntityHistory(entityID)
	valid, issues := s.Audit.VerifyEntityChain(entityID)
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"entries":   entries,
		"valid":     valid,
		"issues":    issues,
	})
}
