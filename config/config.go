package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fbsobreira/gotron-sdk/pkg/address"
	"github.com/joho/godotenv"
)

// USDT TRC20 mainnet contract.
const DefaultUSDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

type Config struct {
	Port string

	// mysql dsn
	DSN string

	// receiving wallet and token
	ReceivingAddress string
	USDTContract     string

	// ledger indexer
	TrongridBaseURL string
	TrongridAPIKey  string
	PollInterval    time.Duration

	// payment processor
	IPNSecret        string
	ProcessorBaseURL string
	ProcessorAPIKey  string

	// proof storage
	IPFSAddr string

	// operator channel
	BotToken  string
	ChannelID string

	// admin api
	JWTSecret string
}

// Load reads the configuration from the environment, after sourcing a .env
// file if one exists.
func Load() (Config, error) {
	godotenv.Load()

	cfg := Config{
		Port:             getenv("PORT", "8080"),
		DSN:              os.Getenv("DB"),
		ReceivingAddress: os.Getenv("RECEIVING_ADDRESS"),
		USDTContract:     getenv("USDT_CONTRACT", DefaultUSDTContract),
		TrongridBaseURL:  os.Getenv("TRONGRID_BASE_URL"),
		TrongridAPIKey:   os.Getenv("TRONGRID_API_KEY"),
		IPNSecret:        os.Getenv("IPN_SECRET"),
		ProcessorBaseURL: getenv("PROCESSOR_BASE_URL", "https://api.nowpayments.io"),
		ProcessorAPIKey:  os.Getenv("PROCESSOR_API_KEY"),
		IPFSAddr:         os.Getenv("IPFS_API_ADDR"),
		BotToken:         os.Getenv("BOT_TOKEN"),
		ChannelID:        os.Getenv("CHANNEL_ID"),
		JWTSecret:        os.Getenv("SECRET"),
		PollInterval:     30 * time.Second,
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("bad POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}

	if cfg.DSN == "" {
		return Config{}, fmt.Errorf("DB is required")
	}
	if cfg.IPNSecret == "" {
		return Config{}, fmt.Errorf("IPN_SECRET is required")
	}
	if cfg.ReceivingAddress == "" {
		return Config{}, fmt.Errorf("RECEIVING_ADDRESS is required")
	}
	if _, err := address.Base58ToAddress(cfg.ReceivingAddress); err != nil {
		return Config{}, fmt.Errorf("RECEIVING_ADDRESS %q is not a valid tron address: %w", cfg.ReceivingAddress, err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
