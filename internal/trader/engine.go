package trader

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/ratiobook"
	"ratio-jump-trader/internal/scout"
	"ratio-jump-trader/internal/store"
	"ratio-jump-trader/internal/txn"
)

// Engine owns one running strategy instance and builds a fresh Context
// bound to a single store transaction for every cycle it runs, so a
// cycle's reads and writes commit or roll back together (spec §5).
type Engine struct {
	UUID      string
	StartTime time.Time

	store    *store.Store
	exchange exchange.Adapter
	logger   *zap.Logger
	cfg      config.Trading
	strategy Strategy
}

// New builds a trading engine bound to the named strategy.
func New(s *store.Store, adapter exchange.Adapter, logger *zap.Logger, cfg config.Trading, strategy Strategy) *Engine {
	return &Engine{
		UUID:      uuid.NewString(),
		StartTime: time.Now(),
		store:     s,
		exchange:  adapter,
		logger:    logger,
		cfg:       cfg,
		strategy:  strategy,
	}
}

// StrategyName returns the running strategy's registry key.
func (e *Engine) StrategyName() string { return e.strategy.Name() }

func (e *Engine) withContext(fn func(ctx Context) error) error {
	return e.store.WithinTransaction(func(tx *store.Store) error {
		book := ratiobook.New(tx, e.exchange, e.logger, e.cfg.Bridge)
		ctx := Context{
			Store:    tx,
			Exchange: e.exchange,
			Book:     book,
			Scout:    newScoutEngine(tx, e.exchange, e.logger, e.cfg),
			Txn:      txn.New(tx, e.exchange, book, e.logger, e.cfg.Bridge),
			Logger:   e.logger,
			Cfg:      e.cfg,
		}
		return fn(ctx)
	})
}

func newScoutEngine(s *store.Store, adapter exchange.Adapter, logger *zap.Logger, cfg config.Trading) *scout.Engine {
	e := scout.New(s, adapter, logger)
	e.Bridge = cfg.Bridge
	e.ScoutMultiplier = cfg.ScoutMultiplier
	e.LossAfterHours = cfg.LossAfterHours
	e.MaxLossPercent = cfg.MaxLossPercent
	return e
}

// Initialize runs the strategy's one-time setup inside a transaction.
func (e *Engine) Initialize() error {
	return e.withContext(func(ctx Context) error {
		if err := e.strategy.Initialize(ctx); err != nil {
			return fmt.Errorf("strategy initialize failed: %w", err)
		}
		return nil
	})
}

// Scout runs one scouting cycle.
func (e *Engine) Scout() error {
	return e.withContext(func(ctx Context) error {
		return e.strategy.Scout(ctx)
	})
}

// BridgeScout runs the bridge-balance recovery pass.
func (e *Engine) BridgeScout() error {
	return e.withContext(func(ctx Context) error {
		return e.strategy.BridgeScout(ctx)
	})
}

// UpdateValues records a balance valuation snapshot for every enabled
// coin plus the bridge, skipping coins with zero balance. Grounded on
// auto_trader.py's update_values (referenced from stats.py reporting).
func (e *Engine) UpdateValues() error {
	return e.withContext(func(ctx Context) error {
		coins, err := ctx.Store.EnabledCoins()
		if err != nil {
			return fmt.Errorf("could not list enabled coins: %w", err)
		}

		now := time.Now()
		symbols := make([]string, 0, len(coins)+1)
		for _, c := range coins {
			symbols = append(symbols, c.Symbol)
		}
		symbols = append(symbols, ctx.Cfg.Bridge)

		for _, symbol := range symbols {
			balance, err := ctx.Exchange.GetCurrencyBalance(symbol, false)
			if err != nil {
				ctx.Logger.Warn("Could not read balance for value snapshot", zap.String("coin", symbol), zap.Error(err))
				continue
			}
			if balance <= 0 {
				continue
			}

			usdValue, btcValue := e.valuate(ctx, symbol, balance)
			if err := ctx.Store.InsertCoinValue(models.CoinValue{
				CoinSymbol: symbol,
				Balance:    balance,
				USDValue:   usdValue,
				BTCValue:   btcValue,
				Datetime:   now,
			}); err != nil {
				ctx.Logger.Warn("Failed to record coin value", zap.String("coin", symbol), zap.Error(err))
			}
		}
		return nil
	})
}

func (e *Engine) valuate(ctx Context, symbol string, balance float64) (usdValue, btcValue float64) {
	bridge := ctx.Cfg.Bridge
	if symbol == bridge {
		usdValue = balance
		if price, err := ctx.Exchange.GetTickerPrice("BTC" + bridge); err == nil && price != nil && *price != 0 {
			btcValue = balance / *price
		}
		return usdValue, btcValue
	}

	if price, err := ctx.Exchange.GetTickerPrice(symbol + bridge); err == nil && price != nil {
		usdValue = balance * *price
	}
	if price, err := ctx.Exchange.GetTickerPrice(symbol + "BTC"); err == nil && price != nil {
		btcValue = balance * *price
	}
	return usdValue, btcValue
}
