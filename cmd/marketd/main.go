package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneymarket/audit"
	"moneymarket/config"
	"moneymarket/core/events"
	"moneymarket/crypto"
	"moneymarket/native/common"
	"moneymarket/native/market"
	"moneymarket/observability/logging"
	"moneymarket/observability/metrics"
	"moneymarket/storage"
)

const envKey = "MARKET_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envKey))
	logger := logging.Setup("marketd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "market"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	owner, self, err := moduleIdentities(cfg)
	if err != nil {
		logger.Error("resolve identities", "error", err)
		os.Exit(1)
	}
	logger.Info("module identities resolved",
		logging.MaskField("owner", owner.String()),
		logging.MaskField("module", self.String()),
	)

	journal, err := audit.NewJournal(cfg.Audit.JournalPath, logger)
	if err != nil {
		logger.Error("open audit journal", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	sinks := []events.Emitter{journal, metrics.NewObserver()}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		publisher := audit.NewPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, logger)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	emitter := events.NewMultiEmitter(sinks...)

	engine := market.NewMoneyMarket(owner, self, cfg.Market.BlockScale)
	custody := market.NewTokenStore(owner)
	custody.SetEmitter(emitter)
	if err := custody.Allow(owner, self); err != nil {
		logger.Error("wire custody", "error", err)
		os.Exit(1)
	}
	oracle := market.NewOracleStore(owner)
	pauses := common.NewPauseSet()
	engine.SetPauses(pauses)

	model := market.NewInterestRateModel(
		cfg.Market.SupplyRateSlopeBPS,
		cfg.Market.BorrowRateBaseBPS,
		cfg.Market.BorrowRateSlopeBPS,
	)
	wire := func(step string, err error) {
		if err != nil {
			logger.Error("wire market", "component", step, "error", err)
			os.Exit(1)
		}
	}
	wire("custody", engine.SetCustody(owner, custody))
	wire("oracle", engine.SetOracle(owner, oracle))
	wire("emitter", engine.SetEmitter(owner, emitter))
	wire("model", engine.SetInterestRateModel(owner, model))
	wire("discount", engine.SetLiquidationDiscountBPS(owner, cfg.Market.LiquidationDiscountBPS))
	if fail, err := engine.SetScaledMinimumCollateralRatio(owner, cfg.Market.ScaledMinCollateralRatio); err != nil {
		logger.Error("wire market", "component", "collateral ratio", "error", err)
		os.Exit(1)
	} else if fail != nil {
		logger.Error("wire market", "component", "collateral ratio", "code", fail.Code)
		os.Exit(1)
	}

	if err := engine.LoadState(db); err != nil {
		logger.Error("restore state", "error", err)
		os.Exit(1)
	}

	for _, raw := range cfg.Market.BorrowableAssets {
		asset, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			logger.Error("decode borrowable asset", logging.MaskField("asset", raw), "error", err)
			os.Exit(1)
		}
		if err := custody.Register(owner, asset); err != nil {
			logger.Error("register asset", logging.MaskField("asset", raw), "error", err)
			os.Exit(1)
		}
		if err := engine.AddBorrowableAsset(owner, asset); err != nil {
			logger.Error("add borrowable asset", logging.MaskField("asset", raw), "error", err)
			os.Exit(1)
		}
		logger.Info("borrowable asset admitted", logging.MaskField("asset", raw))
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listener started", "address", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener", "error", err)
		}
	}()

	logger.Info("money market started",
		"block", engine.BlockNumber(),
		"blockScale", cfg.Market.BlockScale,
		"minCollateralRatio", engine.ScaledMinimumCollateralRatio(),
	)

	// Persist a state snapshot periodically and on shutdown.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := engine.Persist(db); err != nil {
				logger.Error("persist state", "error", err)
			}
		case sig := <-stop:
			logger.Info("shutting down", "signal", sig.String())
			if err := engine.Persist(db); err != nil {
				logger.Error("persist state", "error", err)
			}
			_ = metricsServer.Close()
			return
		}
	}
}

// moduleIdentities resolves the owner and module addresses from the config,
// generating a fresh owner key when none is configured.
func moduleIdentities(cfg *config.Config) (crypto.Address, crypto.Address, error) {
	var owner crypto.Address
	if raw := strings.TrimSpace(cfg.OwnerAddress); raw != "" {
		decoded, err := crypto.DecodeAddress(raw)
		if err != nil {
			return crypto.Address{}, crypto.Address{}, fmt.Errorf("owner address: %w", err)
		}
		owner = decoded
	} else {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return crypto.Address{}, crypto.Address{}, err
		}
		owner = key.PubKey().Address()
	}

	var self crypto.Address
	if raw := strings.TrimSpace(cfg.ModuleAddress); raw != "" {
		decoded, err := crypto.DecodeAddress(raw)
		if err != nil {
			return crypto.Address{}, crypto.Address{}, fmt.Errorf("module address: %w", err)
		}
		self = decoded
	} else {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return crypto.Address{}, crypto.Address{}, err
		}
		self = key.PubKey().Address()
	}
	return owner, self, nil
}
