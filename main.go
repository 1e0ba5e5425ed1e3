package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"finledger_go/api"
	"finledger_go/contracts"
	"finledger_go/events"
	"finledger_go/ledger"
	"finledger_go/metrics"
	"finledger_go/utils"
	"finledger_go/validation"
)

// AppConfig holds all startup configurations
type AppConfig struct {
	Port          int
	Verbose       bool
	DataDir       string
	InstanceID    string
	MinerTag      string
	Jurisdiction  string
	Difficulty    int
	SealThreshold int
	KafkaEnabled  bool
	KafkaBrokers  string
	KafkaTopic    string
}

func getEnvInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	valInt, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s: %s. Using default %d.", key, valStr, defaultValue)
		return defaultValue
	}
	return valInt
}

func loadConfig() *AppConfig {
	config := &AppConfig{}

	flag.IntVar(&config.Port, "port", getEnvInt("API_PORT", 3002), "Port for the HTTP API")
	flag.BoolVar(&config.Verbose, "verbose", os.Getenv("VERBOSE") == "true" || os.Getenv("VERBOSE") == "1", "Enable detailed logging")
	flag.StringVar(&config.DataDir, "datadir", os.Getenv("DATA_DIR"), "Directory for chain data")
	flag.StringVar(&config.InstanceID, "instance", os.Getenv("INSTANCE_ID"), "Instance identifier used in transaction IDs")
	flag.StringVar(&config.MinerTag, "miner", os.Getenv("MINER_TAG"), "Tag credited on mining reward transactions")
	flag.StringVar(&config.Jurisdiction, "jurisdiction", os.Getenv("LEDGER_JURISDICTION"), "Compliance jurisdiction (US or CA)")
	flag.StringVar(&config.KafkaBrokers, "kafkabrokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka broker addresses")
	flag.StringVar(&config.KafkaTopic, "kafkatopic", os.Getenv("KAFKA_TOPIC"), "Kafka topic for sealed block events")
	flag.Parse()

	config.Difficulty = ledger.GetDifficulty()
	config.SealThreshold = ledger.GetSealThreshold()
	config.KafkaEnabled = os.Getenv("KAFKA_ENABLED") == "true"

	if config.DataDir == "" {
		config.DataDir = "data"
		utils.LogInfo("Data directory not specified, using default: %s", config.DataDir)
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()[:8]
	}
	if config.MinerTag == "" {
		config.MinerTag = ledger.DefaultMinerTag
	}
	if config.Jurisdiction == "" {
		config.Jurisdiction = "US"
	}
	return config
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	config := loadConfig()
	utils.SetVerbose(config.Verbose)

	chain, err := ledger.NewLedger(config.DataDir, config.Difficulty, config.SealThreshold)
	if err != nil {
		log.Fatalf("Failed to create ledger: %v", err)
	}

	index, err := ledger.NewBlockIndexDB(config.DataDir)
	if err != nil {
		log.Fatalf("Failed to open block index: %v", err)
	}
	defer index.Close()
	chain.SetBlockIndex(index)

	publisher, err := events.NewPublisher(events.Config{
		Enabled: config.KafkaEnabled,
		Brokers: splitBrokers(config.KafkaBrokers),
		Topic:   config.KafkaTopic,
	})
	if err != nil {
		log.Fatalf("Failed to create block publisher: %v", err)
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()
	publisher.Start(appCtx)

	chain.SetSealHook(func(block *ledger.Block) {
		metrics.BlocksSealed.Inc()
		metrics.ChainHeightGauge.Set(float64(block.Index + 1))
		elapsed := time.Duration(time.Now().UnixMicro()-block.Timestamp) * time.Microsecond
		metrics.MiningDurationSeconds.Observe(elapsed.Seconds())
		if err := publisher.Publish(block); err != nil {
			utils.LogError("Failed to publish block %d: %v", block.Index, err)
		}
	})

	if err := chain.Initialize(); err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	gate := validation.NewAdmissionGate(config.Jurisdiction)
	server := api.NewServer(config.Port, config.InstanceID, chain, gate, config.MinerTag)
	server.Recurring = contracts.NewRecurringInvoiceContract(chain)
	server.Terms = contracts.NewPaymentTermsContract(chain)
	server.Tax = contracts.NewTaxWithholdingContract(chain, config.Jurisdiction)
	server.Audit = contracts.NewAuditTrailContract(chain)
	server.SetupRoutes()

	go runContractJobs(appCtx, server)
	go server.Start()

	utils.PrintStartupMessage(config.InstanceID, config.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	utils.LogInfo("Shutting down")
	cancelApp()
	publisher.Stop()
}

// runContractJobs periodically runs the automated contracts: recurring
// invoice generation and payment reminder checks.
func runContractJobs(ctx context.Context, server *api.Server) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			utils.LogDebug("Running contract jobs")
			if generated, err := server.Recurring.CheckAndGenerate(); err != nil {
				utils.LogError("Recurring invoice check failed: %v", err)
			} else if len(generated) > 0 {
				metrics.ContractTransactions.WithLabelValues("recurring_invoice").Add(float64(len(generated)))
			}
			if _, err := server.Terms.CheckReminders(); err != nil {
				utils.LogError("Reminder check failed: %v", err)
			}
		}
	}
}

func splitBrokers(brokers string) []string {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}
	parts := strings.Split(brokers, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
