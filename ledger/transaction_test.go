package ledger

import "testing"

func TestTransactionHashDeterminism(t *testing.T) {
	tx := &Transaction{
		ID:        "tx-1",
		Timestamp: 1700000000000000,
		Kind:      TxInvoice,
		Payload:   map[string]any{"client_id": "c-1", "amount": 500.0},
		Metadata:  map[string]any{},
	}

	t.Run("PureRecomputation", func(t *testing.T) {
		if tx.CalculateHash() != tx.CalculateHash() {
			t.Errorf("Expected CalculateHash to be pure")
		}
	})

	t.Run("IdenticalFieldsIdenticalHash", func(t *testing.T) {
		clone := &Transaction{
			ID:        "tx-1",
			Timestamp: 1700000000000000,
			Kind:      TxInvoice,
			Payload:   map[string]any{"amount": 500.0, "client_id": "c-1"},
			Metadata:  map[string]any{},
		}
		if tx.CalculateHash() != clone.CalculateHash() {
			t.Errorf("Expected transactions with identical fields to hash identically")
		}
	})

	t.Run("MutatedPayloadChangesHash", func(t *testing.T) {
		original := tx.CalculateHash()
		tx.Payload["amount"] = 501.0
		if tx.CalculateHash() == original {
			t.Errorf("Expected payload mutation to change the hash")
		}
		tx.Payload["amount"] = 500.0
	})

	t.Run("NilMapsMatchEmptyMaps", func(t *testing.T) {
		withNil := &Transaction{ID: "tx-2", Timestamp: 1, Kind: TxPayment}
		withEmpty := &Transaction{
			ID: "tx-2", Timestamp: 1, Kind: TxPayment,
			Payload: map[string]any{}, Metadata: map[string]any{},
		}
		if withNil.CalculateHash() != withEmpty.CalculateHash() {
			t.Errorf("Expected nil and empty payload/metadata to hash identically")
		}
	})
}

func TestTransactionAmount(t *testing.T) {
	cases := []struct {
		name     string
		payload  map[string]any
		expected float64
	}{
		{"Float", map[string]any{"amount": 12.5}, 12.5},
		{"Int", map[string]any{"amount": 100}, 100},
		{"Missing", map[string]any{"note": "none"}, 0},
		{"NonNumeric", map[string]any{"amount": "lots"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := NewTransaction("tx", TxExpense, tc.payload)
			if got := tx.Amount(); got != tc.expected {
				t.Errorf("Expected amount %v, got %v", tc.expected, got)
			}
		})
	}
}
