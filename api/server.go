// Package api exposes the ledger node over HTTP.
package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"finledger_go/contracts"
	"finledger_go/ledger"
	"finledger_go/metrics"
	"finledger_go/utils"
	"finledger_go/validation"
)

// Server represents the HTTP server for the ledger node
type Server struct {
	Router     *mux.Router
	Port       int
	InstanceID string
	Ledger     *ledger.Ledger
	Gate       *validation.AdmissionGate
	MinerTag   string

	Recurring *contracts.RecurringInvoiceContract
	Terms     *contracts.PaymentTermsContract
	Tax       *contracts.TaxWithholdingContract
	Audit     *contracts.AuditTrailContract
}

// NewServer creates a new server instance
func NewServer(port int, instanceID string, chain *ledger.Ledger, gate *validation.AdmissionGate, minerTag string) *Server {
	return &Server{
		Router:     mux.NewRouter(),
		Port:       port,
		InstanceID: instanceID,
		Ledger:     chain,
		Gate:       gate,
		MinerTag:   minerTag,
	}
}

// SetupRoutes configures the API routes
func (s *Server) SetupRoutes() {
	s.Router.HandleFunc("/ping", s.PingHandler).Methods("GET")

	// Transaction endpoints
	s.Router.HandleFunc("/tx", s.TransactionHandler).Methods("POST")
	s.Router.HandleFunc("/pending", s.PendingHandler).Methods("GET")

	// Chain endpoints
	s.Router.HandleFunc("/seal", s.SealHandler).Methods("POST")
	s.Router.HandleFunc("/history", s.HistoryHandler).Methods("GET")
	s.Router.HandleFunc("/balance", s.BalanceHandler).Methods("GET")
	s.Router.HandleFunc("/chain/validate", s.ValidateChainHandler).Methods("GET")
	s.Router.HandleFunc("/block/latest", s.LatestBlockHandler).Methods("GET")
	s.Router.HandleFunc("/block/index/{index}", s.BlockByIndexHandler).Methods("GET")
	s.Router.HandleFunc("/block/hash/{hash}", s.BlockByHashHandler).Methods("GET")

	// Contract endpoints
	s.Router.HandleFunc("/contracts/recurring", s.CreateRecurringRuleHandler).Methods("POST")
	s.Router.HandleFunc("/contracts/recurring", s.ListRecurringRulesHandler).Methods("GET")
	s.Router.HandleFunc("/contracts/terms", s.CreateTermsHandler).Methods("POST")
	s.Router.HandleFunc("/contracts/terms/payment", s.ProcessPaymentHandler).Methods("POST")
	s.Router.HandleFunc("/contracts/tax", s.TaxWithholdingHandler).Methods("POST")
	s.Router.HandleFunc("/audit", s.AuditLogHandler).Methods("POST")
	s.Router.HandleFunc("/audit/{entityId}", s.AuditHistoryHandler).Methods("GET")

	// Observability
	s.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() {
	utils.LogInfo("Server starting on port %d", s.Port)

	srv := &http.Server{
		Handler:      s.Router,
		Addr:         fmt.Sprintf(":%d", s.Port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Fatal(srv.ListenAndServe())
}
