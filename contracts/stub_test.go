package contracts

import (
	"sync"

	"finledger_go/ledger"
)

// stubLedger records admitted transactions in memory so contract tests can
// assert on what was written without mining real blocks.
type stubLedger struct {
	mutex     sync.Mutex
	admitted  []*ledger.Transaction
	failAdmit error
}

func (s *stubLedger) Admit(tx *ledger.Transaction) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failAdmit != nil {
		return "", s.failAdmit
	}
	s.admitted = append(s.admitted, tx)
	return tx.ID, nil
}

func (s *stubLedger) History(kindFilter ledger.TxKind) []*ledger.Transaction {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	history := []*ledger.Transaction{}
	for _, tx := range s.admitted {
		if kindFilter == "" || tx.Kind == kindFilter {
			history = append(history, tx)
		}
	}
	return history
}

func (s *stubLedger) GetLatestBlock() *ledger.Block {
	return nil
}

func (s *stubLedger) lastAdmitted() *ledger.Transaction {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.admitted) == 0 {
		return nil
	}
	return s.admitted[len(s.admitted)-1]
}

func (s *stubLedger) countKind(kind ledger.TxKind) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	count := 0
	for _, tx := range s.admitted {
		if tx.Kind == kind {
			count++
		}
	}
	return count
}
