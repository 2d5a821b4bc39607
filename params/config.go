package params

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Exchange holds the two values fixed at exchange creation.
// Neither can change for the lifetime of the service.
type Exchange struct {
	FeeAccount common.Address // receives the fee leg of every trade
	FeePercent uint64         // integer percent 0-100, truncating division
}

type Node struct {
	DBPath     string
	ListenAddr string
	LogFile    string // empty means console only
}

type Config struct {
	Exchange Exchange
	Node     Node
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			FeeAccount: common.HexToAddress("0xFee0000000000000000000000000000000000000"),
			FeePercent: 3,
		},
		Node: Node{
			DBPath:     "./data/exchange.db",
			ListenAddr: ":8080",
			LogFile:    "data/node.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if acct := os.Getenv("FEE_ACCOUNT"); acct != "" {
		if !common.IsHexAddress(acct) {
			return cfg, fmt.Errorf("FEE_ACCOUNT is not a hex address: %s", acct)
		}
		cfg.Exchange.FeeAccount = common.HexToAddress(acct)
	}

	if pct := os.Getenv("FEE_PERCENT"); pct != "" {
		n, err := strconv.ParseUint(pct, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("FEE_PERCENT: %w", err)
		}
		cfg.Exchange.FeePercent = n
	}
	if cfg.Exchange.FeePercent > 100 {
		return cfg, fmt.Errorf("FEE_PERCENT must be 0-100, got %d", cfg.Exchange.FeePercent)
	}

	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.Node.DBPath = p
	}
	if a := os.Getenv("LISTEN_ADDR"); a != "" {
		cfg.Node.ListenAddr = a
	}
	// LOG_FILE= (set but empty) disables the file sink entirely
	if f, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Node.LogFile = f
	}

	return cfg, nil
}
