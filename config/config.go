package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// MarketConfig carries the market module parameters.
type MarketConfig struct {
	BlockScale               uint64   `toml:"BlockScale"`
	ScaledMinCollateralRatio uint64   `toml:"ScaledMinCollateralRatio"`
	LiquidationDiscountBPS   uint64   `toml:"LiquidationDiscountBPS"`
	SupplyRateSlopeBPS       uint64   `toml:"SupplyRateSlopeBPS"`
	BorrowRateBaseBPS        uint64   `toml:"BorrowRateBaseBPS"`
	BorrowRateSlopeBPS       uint64   `toml:"BorrowRateSlopeBPS"`
	BorrowableAssets         []string `toml:"BorrowableAssets"`
}

// AuditConfig carries the event journal settings.
type AuditConfig struct {
	JournalPath  string   `toml:"JournalPath"`
	KafkaBrokers []string `toml:"KafkaBrokers"`
	KafkaTopic   string   `toml:"KafkaTopic"`
}

type Config struct {
	DataDir        string       `toml:"DataDir"`
	MetricsAddress string       `toml:"MetricsAddress"`
	Environment    string       `toml:"Environment"`
	OwnerAddress   string       `toml:"OwnerAddress"`
	ModuleAddress  string       `toml:"ModuleAddress"`
	Market         MarketConfig `toml:"Market"`
	Audit          AuditConfig  `toml:"Audit"`
}

// Load reads the configuration from the given path. A missing file yields the
// defaults; present fields override them.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		DataDir:        "./market-data",
		MetricsAddress: ":9464",
		Environment:    "local",
		Market: MarketConfig{
			BlockScale:               10,
			ScaledMinCollateralRatio: 20_000,
			LiquidationDiscountBPS:   200,
			SupplyRateSlopeBPS:       1_000,
			BorrowRateBaseBPS:        1_000,
			BorrowRateSlopeBPS:       3_000,
		},
		Audit: AuditConfig{
			JournalPath: "./market-data/audit.db",
		},
	}
}

func (c *Config) applyDefaults() {
	defaults := defaultConfig()
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaults.DataDir
	}
	if strings.TrimSpace(c.MetricsAddress) == "" {
		c.MetricsAddress = defaults.MetricsAddress
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = defaults.Environment
	}
	if c.Market.BlockScale == 0 {
		c.Market.BlockScale = defaults.Market.BlockScale
	}
	if c.Market.ScaledMinCollateralRatio == 0 {
		c.Market.ScaledMinCollateralRatio = defaults.Market.ScaledMinCollateralRatio
	}
	if c.Market.SupplyRateSlopeBPS == 0 {
		c.Market.SupplyRateSlopeBPS = defaults.Market.SupplyRateSlopeBPS
	}
	if c.Market.BorrowRateBaseBPS == 0 {
		c.Market.BorrowRateBaseBPS = defaults.Market.BorrowRateBaseBPS
	}
	if c.Market.BorrowRateSlopeBPS == 0 {
		c.Market.BorrowRateSlopeBPS = defaults.Market.BorrowRateSlopeBPS
	}
	if strings.TrimSpace(c.Audit.JournalPath) == "" {
		c.Audit.JournalPath = defaults.Audit.JournalPath
	}
}
