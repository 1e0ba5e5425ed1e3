// Package events publishes sealed-block notifications to Kafka so downstream
// bookkeeping systems can react to chain growth without polling the node.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"finledger_go/ledger"
	"finledger_go/utils"
)

// BlockEvent is the wire payload emitted for each sealed block.
type BlockEvent struct {
	Index        int64  `json:"index"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	MerkleRoot   string `json:"merkle_root"`
	TxCount      int    `json:"tx_count"`
	Timestamp    int64  `json:"timestamp"`
	Miner        string `json:"miner,omitempty"`
}

// Config holds the Kafka publishing options.
type Config struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

/**
 * Publisher delivers block events asynchronously through a bounded queue and
 * a single background loop, so sealing never blocks on the broker. Delivery
 * failures are logged and dropped; the chain itself is the durable record.
 */
type Publisher struct {
	cfg       Config
	writer    kafkaMessageWriter
	queue     chan BlockEvent
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

const publisherQueueSize = 128

var errPublisherStopped = errors.New("block publisher stopped")

// NewPublisher constructs a Publisher backed by a Kafka writer. A disabled
// config yields a no-op publisher so callers never need to branch.
func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{cfg: cfg}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	return newPublisherWithWriter(cfg, writer), nil
}

// newPublisherWithWriter wires the provided writer in. It is used in tests.
func newPublisherWithWriter(cfg Config, writer kafkaMessageWriter) *Publisher {
	return &Publisher{
		cfg:    cfg,
		writer: writer,
		queue:  make(chan BlockEvent, publisherQueueSize),
	}
}

// Start launches the background delivery loop.
func (p *Publisher) Start(ctx context.Context) {
	if !p.cfg.Enabled {
		return
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.wg.Add(1)
		go p.run()
		utils.LogInfo("Block publisher started for topic %s", p.cfg.Topic)
	})
}

// Stop drains queued events and closes the writer.
func (p *Publisher) Stop() {
	if !p.cfg.Enabled {
		return
	}
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		if p.writer != nil {
			if err := p.writer.Close(); err != nil {
				utils.LogError("Failed to close kafka writer: %v", err)
			}
		}
		utils.LogInfo("Block publisher stopped")
	})
}

// Publish queues a sealed block for delivery. It never blocks the caller:
// when the queue is full or the publisher is stopped the event is dropped
// with an error.
func (p *Publisher) Publish(block *ledger.Block) error {
	if !p.cfg.Enabled || block == nil {
		return nil
	}

	event := BlockEvent{
		Index:        block.Index,
		Hash:         block.Hash,
		PreviousHash: block.PreviousHash,
		MerkleRoot:   block.MerkleRoot(),
		TxCount:      len(block.Transactions),
		Timestamp:    block.Timestamp,
		Miner:        minerTag(block),
	}

	select {
	case p.queue <- event:
		return nil
	default:
		if p.runCtx != nil && p.runCtx.Err() != nil {
			return errPublisherStopped
		}
		utils.LogError("Block event queue full, dropping event for block %d", event.Index)
		return errors.New("block event queue full")
	}
}

// SealHook adapts Publish to the ledger's seal hook signature.
func (p *Publisher) SealHook() ledger.SealHook {
	return func(block *ledger.Block) {
		if err := p.Publish(block); err != nil {
			utils.LogError("Failed to publish block %d: %v", block.Index, err)
		}
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			return
		case event := <-p.queue:
			p.deliver(event)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case event := <-p.queue:
			p.deliver(event)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(event BlockEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		utils.LogError("Failed to encode block event %d: %v", event.Index, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.Hash),
		Value: value,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		utils.LogError("Failed to deliver block event %d: %v", event.Index, err)
		return
	}
	utils.LogDebug("Published block event %d (%s)", event.Index, event.Hash)
}

// minerTag pulls the miner tag off the block's reward transaction, if any.
func minerTag(block *ledger.Block) string {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := block.Transactions[i]
		if tx.Kind == ledger.TxMiningReward {
			if miner, ok := tx.Payload["miner"].(string); ok {
				return miner
			}
		}
	}
	return ""
}
