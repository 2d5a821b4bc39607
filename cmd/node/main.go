package main

import (
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/tkoide/exchequer/params"
	"github.com/tkoide/exchequer/pkg/api"
	"github.com/tkoide/exchequer/pkg/exchange"
	"github.com/tkoide/exchequer/pkg/exchange/token"
	"github.com/tkoide/exchequer/pkg/storage"
	"github.com/tkoide/exchequer/pkg/util"
)

// custodyAddress identifies the exchange itself inside the devnet bank:
// deposits pull wallet value into this account, withdrawals release from it.
var custodyAddress = common.HexToAddress("0xEc5e000000000000000000000000000000000001")

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newNodeLogger(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("node_starting",
		zap.String("db", cfg.Node.DBPath),
		zap.String("fee_account", cfg.Exchange.FeeAccount.Hex()),
		zap.Uint64("fee_percent", cfg.Exchange.FeePercent))

	store, err := storage.Open(cfg.Node.DBPath)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer store.Close()

	bank := token.NewBank(custodyAddress)
	fundDevnetAccounts(bank, logger)

	hub := api.NewHub(logger)

	x, err := exchange.New(
		exchange.Config{
			FeeAccount: cfg.Exchange.FeeAccount,
			FeePercent: cfg.Exchange.FeePercent,
		},
		store, bank,
		exchange.Options{Logger: logger, Emitter: hub},
	)
	if err != nil {
		logger.Fatal("exchange_init_failed", zap.Error(err))
	}

	server := api.NewServer(x, hub, logger)

	if err := server.Start(cfg.Node.ListenAddr); err != nil {
		logger.Fatal("api_server_failed", zap.Error(err))
	}
}

// newNodeLogger tees to a file when one is configured, console only otherwise.
func newNodeLogger(logFile string) (*zap.Logger, error) {
	if logFile == "" {
		return util.NewLogger()
	}
	return util.NewLoggerWithFile(logFile)
}

// fundDevnetAccounts mints native currency to addresses in DEVNET_ACCOUNTS
// so a fresh devnet has something to deposit. No-op when unset.
func fundDevnetAccounts(bank *token.Bank, logger *zap.Logger) {
	accounts := os.Getenv("DEVNET_ACCOUNTS")
	if accounts == "" {
		return
	}

	grant := uint256.MustFromDecimal("1000000000000000000000") // 1000 units at 18 decimals
	for _, a := range strings.Split(accounts, ",") {
		a = strings.TrimSpace(a)
		if !common.IsHexAddress(a) {
			logger.Warn("devnet_account_invalid", zap.String("addr", a))
			continue
		}
		bank.Mint(exchange.NativeAsset, common.HexToAddress(a), grant)
		logger.Info("devnet_account_funded", zap.String("addr", a))
	}
}
