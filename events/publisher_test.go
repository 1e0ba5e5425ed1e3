package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"finledger_go/ledger"
)

type stubWriter struct {
	mutex    sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.closed = true
	return nil
}

func (w *stubWriter) count() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.messages)
}

func (w *stubWriter) last() kafka.Message {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.messages[len(w.messages)-1]
}

func sealedBlock(t *testing.T) *ledger.Block {
	t.Helper()
	reward := ledger.NewTransaction("reward_1", ledger.TxMiningReward, map[string]any{
		"miner":  "system",
		"amount": ledger.MiningRewardAmount,
	})
	block := ledger.NewBlock(3, "prevhash", []*ledger.Transaction{reward})
	block.Mine(1)
	return block
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Condition not met before deadline")
}

func TestPublisherDeliversBlockEvents(t *testing.T) {
	writer := &stubWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "blocks"}, writer)
	p.Start(context.Background())
	defer p.Stop()

	block := sealedBlock(t)
	if err := p.Publish(block); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	waitFor(t, func() bool { return writer.count() == 1 })

	msg := writer.last()
	if string(msg.Key) != block.Hash {
		t.Errorf("Expected message key %s, got %s", block.Hash, string(msg.Key))
	}

	var event BlockEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Index != 3 || event.Hash != block.Hash {
		t.Errorf("Expected event for block 3 (%s), got %+v", block.Hash, event)
	}
	if event.Miner != "system" {
		t.Errorf("Expected miner system, got %s", event.Miner)
	}
	if event.TxCount != 1 {
		t.Errorf("Expected tx count 1, got %d", event.TxCount)
	}
	if event.MerkleRoot != block.MerkleRoot() {
		t.Errorf("Expected merkle root to match block")
	}
}

func TestPublisherStopDrainsQueue(t *testing.T) {
	writer := &stubWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "blocks"}, writer)
	p.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := p.Publish(sealedBlock(t)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	p.Stop()

	if writer.count() != 5 {
		t.Errorf("Expected all 5 queued events delivered on stop, got %d", writer.count())
	}
	if !writer.closed {
		t.Errorf("Expected writer closed on stop")
	}
}

func TestDisabledPublisherIsNoOp(t *testing.T) {
	p, err := NewPublisher(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	p.Start(context.Background())
	if err := p.Publish(sealedBlock(t)); err != nil {
		t.Errorf("Expected disabled publisher to accept and drop events, got %v", err)
	}
	p.Stop()
}

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(Config{Enabled: true, Brokers: []string{"localhost:9092"}}); err == nil {
		t.Errorf("Expected error for missing topic")
	}
	if _, err := NewPublisher(Config{Enabled: true, Topic: "blocks"}); err == nil {
		t.Errorf("Expected error for missing brokers")
	}
}

func TestSealHookPublishes(t *testing.T) {
	writer := &stubWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "blocks"}, writer)
	p.Start(context.Background())
	defer p.Stop()

	hook := p.SealHook()
	hook(sealedBlock(t))

	waitFor(t, func() bool { return writer.count() == 1 })
}
