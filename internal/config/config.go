// Package config loads the YAML configuration shared by the worker, backtest
// and optimizer commands.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/cache/redis"
	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval   = 60 * time.Second
	DefaultPriceTTL       = 10 * time.Second
	DefaultBacktestDays   = 30
	DefaultFreshness      = 24 * time.Hour
	DefaultInitialBalance = 10000
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Database  DatabaseConfig   `yaml:"database" json:"database"`
	Log       LogConfig        `yaml:"log" json:"log"`
	Cache     CacheConfig      `yaml:"cache" json:"cache"`
	Exchanges []ExchangeConfig `yaml:"exchanges" json:"exchanges" jsonschema:"required,minItems=1" validate:"required,min=1,dive"`
	Backtest  BacktestConfig   `yaml:"backtest" json:"backtest"`
	Optimizer OptimizerConfig  `yaml:"optimizer" json:"optimizer"`
}

// DatabaseConfig points at the DuckDB file. An empty path keeps everything in memory.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" jsonschema:"title=Database Path,description=DuckDB file; empty for in-memory"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
}

// CacheConfig selects where current prices are cached between polls.
type CacheConfig struct {
	Driver   string             `yaml:"driver" json:"driver" jsonschema:"enum=memory,enum=redis" validate:"omitempty,oneof=memory redis"`
	PriceTTL time.Duration      `yaml:"price_ttl" json:"price_ttl" jsonschema:"title=Price TTL,description=How long a cached price stays fresh (e.g. 10s)"`
	Redis    redis.ClientConfig `yaml:"redis" json:"redis"`
}

// ExchangeConfig is one exchange account and the pairs traded on it.
type ExchangeConfig struct {
	exchange.DriverConfig `yaml:",inline"`
	PollInterval          time.Duration `yaml:"poll_interval" json:"poll_interval" jsonschema:"title=Poll Interval,description=Worker loop interval (e.g. 60s)"`
	Pairs                 []PairConfig  `yaml:"pairs" json:"pairs" jsonschema:"required,minItems=1" validate:"required,min=1,dive"`
}

// PairConfig is one traded pair as written in the config file.
type PairConfig struct {
	Symbol                 string           `yaml:"symbol" json:"symbol" jsonschema:"required,title=Symbol,description=BASE/QUOTE" validate:"required,contains=/"`
	Timeframe              types.Timeframe  `yaml:"timeframe" json:"timeframe" jsonschema:"required" validate:"required"`
	MarketType             types.MarketType `yaml:"market_type" json:"market_type" jsonschema:"required,enum=SPOT,enum=FUTURES,enum=INVERSE_FUTURES" validate:"required,oneof=SPOT FUTURES INVERSE_FUTURES"`
	TradingEnabled         bool             `yaml:"trading_enabled" json:"trading_enabled"`
	MonitoringEnabled      bool             `yaml:"monitoring_enabled" json:"monitoring_enabled"`
	Strategy               string           `yaml:"strategy" json:"strategy" jsonschema:"required" validate:"required"`
	Params                 map[string]any   `yaml:"params,omitempty" json:"params,omitempty"`
	BacktestDays           *int             `yaml:"backtest_days,omitempty" json:"backtest_days,omitempty" validate:"omitempty,gt=0"`
	BacktestInitialBalance *float64         `yaml:"backtest_initial_balance,omitempty" json:"backtest_initial_balance,omitempty" validate:"omitempty,gt=0"`
}

type BacktestConfig struct {
	Days           int                   `yaml:"days" json:"days" jsonschema:"minimum=1" validate:"omitempty,gt=0"`
	InitialBalance float64               `yaml:"initial_balance" json:"initial_balance" jsonschema:"minimum=0" validate:"omitempty,gt=0"`
	Leverage       int                   `yaml:"leverage" json:"leverage" validate:"omitempty,gt=0"`
	Broker         commission_fee.Broker `yaml:"broker" json:"broker" validate:"omitempty,oneof=bybit gate kucoin zero_commission"`
	TicksPerCandle int                   `yaml:"ticks_per_candle" json:"ticks_per_candle" validate:"omitempty,gt=0"`
	ResultsFolder  string                `yaml:"results_folder" json:"results_folder"`
}

type OptimizerConfig struct {
	Iterations  int           `yaml:"iterations" json:"iterations" validate:"omitempty,gt=0"`
	Freshness   time.Duration `yaml:"freshness" json:"freshness" jsonschema:"description=Maximum age of a reusable baseline (e.g. 24h)"`
	MinDuration time.Duration `yaml:"min_duration" json:"min_duration" jsonschema:"description=Minimum simulated span of a reusable baseline"`
	Seed        uint64        `yaml:"seed" json:"seed"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read config %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheMemory
	}

	if c.Cache.PriceTTL <= 0 {
		c.Cache.PriceTTL = DefaultPriceTTL
	}

	for i := range c.Exchanges {
		if c.Exchanges[i].PollInterval <= 0 {
			c.Exchanges[i].PollInterval = DefaultPollInterval
		}
	}

	if c.Backtest.Days <= 0 {
		c.Backtest.Days = DefaultBacktestDays
	}

	if c.Backtest.InitialBalance <= 0 {
		c.Backtest.InitialBalance = DefaultInitialBalance
	}

	if c.Backtest.Broker == "" {
		c.Backtest.Broker = commission_fee.BrokerZero
	}

	if c.Optimizer.Iterations <= 0 {
		c.Optimizer.Iterations = 1
	}

	if c.Optimizer.Freshness <= 0 {
		c.Optimizer.Freshness = DefaultFreshness
	}
}

// Validate checks struct tags, timeframes, symbols and every pair's strategy parameters.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid config", err)
	}

	if c.Cache.Driver == CacheRedis && c.Cache.Redis.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "cache.redis.addr is required for the redis cache")
	}

	seen := make(map[string]bool)

	for i := range c.Exchanges {
		ex := &c.Exchanges[i]
		if seen[ex.Name] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate exchange %q", ex.Name)
		}

		seen[ex.Name] = true

		for j := range ex.Pairs {
			p := &ex.Pairs[j]
			if parts := strings.Split(p.Symbol, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return errors.Newf(errors.ErrCodeInvalidTicker, "invalid symbol %q, expected BASE/QUOTE", p.Symbol)
			}

			tf, err := types.ParseTimeframe(string(p.Timeframe))
			if err != nil {
				return err
			}

			p.Timeframe = tf

			if _, err := strategy.New(p.Strategy, p.Params); err != nil {
				return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "%s %s", ex.Name, p.Symbol)
			}
		}
	}

	return nil
}

// Exchange returns the exchange entry with the given name.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	for _, ex := range c.Exchanges {
		if ex.Name == name {
			return ex, true
		}
	}

	return ExchangeConfig{}, false
}

// FindPair returns the configured pair with symbol on exchangeName. Symbols
// compare case-insensitively. An empty timeframe matches any.
func (c *Config) FindPair(exchangeName, symbol string, timeframe types.Timeframe) (types.Pair, bool) {
	ex, ok := c.Exchange(exchangeName)
	if !ok {
		return types.Pair{}, false
	}

	for _, p := range ex.Pairs {
		if !strings.EqualFold(p.Symbol, symbol) {
			continue
		}

		if timeframe != "" && !strings.EqualFold(string(p.Timeframe), string(timeframe)) {
			continue
		}

		return p.Pair(ex.Name), true
	}

	return types.Pair{}, false
}

// Pairs flattens every exchange's pairs into trading pairs.
func (c *Config) Pairs() []types.Pair {
	var pairs []types.Pair
	for _, ex := range c.Exchanges {
		pairs = append(pairs, ex.TradingPairs()...)
	}

	return pairs
}

// TradingPairs returns the exchange's pairs.
func (e ExchangeConfig) TradingPairs() []types.Pair {
	pairs := make([]types.Pair, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		pairs = append(pairs, p.Pair(e.Name))
	}

	return pairs
}

// Pair converts the entry into a trading pair on exchangeName. The symbol must
// already be validated.
func (p PairConfig) Pair(exchangeName string) types.Pair {
	base, quote := types.ParseSymbol(p.Symbol)

	pair := types.Pair{
		BaseCurrency:           base,
		QuoteCurrency:          quote,
		Timeframe:              p.Timeframe,
		ExchangeName:           exchangeName,
		MarketType:             p.MarketType,
		TradingEnabled:         p.TradingEnabled,
		MonitoringEnabled:      p.MonitoringEnabled,
		StrategyName:           p.Strategy,
		StrategyParams:         p.Params,
		BacktestDays:           optional.None[int](),
		BacktestInitialBalance: optional.None[decimal.Decimal](),
	}

	if p.BacktestDays != nil {
		pair.BacktestDays = optional.Some(*p.BacktestDays)
	}

	if p.BacktestInitialBalance != nil {
		pair.BacktestInitialBalance = optional.Some(decimal.NewFromFloat(*p.BacktestInitialBalance))
	}

	return pair
}

// FromPair is the inverse of PairConfig.Pair.
func FromPair(pair types.Pair) PairConfig {
	p := PairConfig{
		Symbol:            pair.Symbol(),
		Timeframe:         pair.Timeframe,
		MarketType:        pair.MarketType,
		TradingEnabled:    pair.TradingEnabled,
		MonitoringEnabled: pair.MonitoringEnabled,
		Strategy:          pair.StrategyName,
		Params:            pair.StrategyParams,
	}

	if days, err := pair.BacktestDays.Take(); err == nil {
		p.BacktestDays = &days
	}

	if balance, err := pair.BacktestInitialBalance.Take(); err == nil {
		f := balance.InexactFloat64()
		p.BacktestInitialBalance = &f
	}

	return p
}

// PairSnippet renders the pair with params as a config list entry, ready to
// paste under an exchange's pairs.
func PairSnippet(pair types.Pair, params map[string]any) (string, error) {
	entry := FromPair(pair)
	entry.Params = params

	out, err := yaml.Marshal([]PairConfig{entry})
	if err != nil {
		return "", fmt.Errorf("failed to render pair snippet: %w", err)
	}

	return string(out), nil
}
