// Package txn implements the transaction-through-bridge protocol
// (spec §4.3): a two-leg state machine moving from one alt coin to
// another via the bridge asset, with pre-check, sell-leg confirmation,
// buy-leg, partial-failure recovery, and post-jump ratio reset.
package txn

import (
	"fmt"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/ratiobook"
	"ratio-jump-trader/internal/store"
)

// State names the protocol's state machine states.
type State string

const (
	StateIdle     State = "IDLE"
	StatePrecheck State = "PRECHECK"
	StateSelling  State = "SELLING"
	StateBought   State = "BOUGHT"
	StateAnchored State = "ANCHORED"
	StateAborted  State = "ABORTED"
)

// minBridgeDustQuoteUnits is the hard-coded bridge-balance floor used
// by the precheck's fallback branch. Per spec.md's Open Questions this
// is a USDT-specific policy assumption, not a derived invariant —
// preserved as a named constant rather than made configurable.
const minBridgeDustQuoteUnits = 10.0

// Result reports the outcome of one transition attempt.
type Result struct {
	FinalState     State
	NewCoinSymbol  string
	FailedBuyOrder bool
}

// Protocol runs one transaction attempt bound to a single store
// session, so the ratio-book reset it performs on ANCHORED lands in
// the same transaction as the rest of the cycle's writes.
type Protocol struct {
	store    *store.Store
	exchange exchange.Adapter
	book     *ratiobook.Book
	logger   *zap.Logger
	bridge   string
}

// New builds a transaction protocol runner.
func New(s *store.Store, adapter exchange.Adapter, book *ratiobook.Book, logger *zap.Logger, bridge string) *Protocol {
	return &Protocol{store: s, exchange: adapter, book: book, logger: logger, bridge: bridge}
}

// Execute jumps from-coin -> bridge -> to-coin. Sell and buy legs are
// not atomic at the exchange: if the sell succeeds and the buy fails,
// Result.FailedBuyOrder signals the caller to run bridge-scout on the
// next cycle. The ratio book is only touched once ANCHORED is reached,
// so a partial failure never corrupts it.
func (p *Protocol) Execute(from, to string) (*Result, error) {
	l := p.logger.With(zap.String("from", from), zap.String("to", to))

	canSell, err := p.precheck(from)
	if err != nil {
		return nil, fmt.Errorf("precheck failed: %w", err)
	}
	if !canSell.proceed {
		l.Info("Precheck found no sellable position and insufficient bridge dust, aborting")
		return &Result{FinalState: StateAborted}, nil
	}

	if canSell.shouldSell {
		sellResult, err := p.exchange.SellAlt(from, p.bridge)
		if err != nil || sellResult == nil {
			l.Info("Couldn't sell, going back to scouting mode", zap.Error(err))
			return &Result{FinalState: StateAborted}, nil
		}
		if err := p.recordTrade(from, true, sellResult); err != nil {
			l.Warn("Failed to record sell trade", zap.Error(err))
		}
	}

	buyResult, err := p.exchange.BuyAlt(to, p.bridge, nil)
	if err != nil || buyResult == nil {
		l.Info("Couldn't buy, going back to scouting mode", zap.Error(err))
		return &Result{FinalState: StateAborted, FailedBuyOrder: true}, nil
	}
	if err := p.recordTrade(to, false, buyResult); err != nil {
		l.Warn("Failed to record buy trade", zap.Error(err))
	}

	now := p.exchange.Now()
	if err := p.store.SetCurrentCoin(to, now); err != nil {
		return nil, fmt.Errorf("could not set new current coin: %w", err)
	}
	if err := p.book.PostJumpResetBaseline(from, to, buyResult.Price); err != nil {
		return nil, fmt.Errorf("could not reset ratio book after jump: %w", err)
	}

	l.Info("Jump transaction successful", zap.Float64("fill_price", buyResult.Price))
	return &Result{FinalState: StateAnchored, NewCoinSymbol: to}, nil
}

type precheckResult struct {
	proceed    bool
	shouldSell bool
}

// precheck reads cached from-coin balance, forces a fresh read if the
// cached value looks stale, and falls back to assuming a prior sell
// already cleared if the bridge already carries non-dust balance.
func (p *Protocol) precheck(from string) (precheckResult, error) {
	minNotional, err := p.exchange.GetMinNotional(from, p.bridge)
	if err != nil {
		return precheckResult{}, err
	}
	fromPrice, err := p.exchange.GetTickerPrice(from + p.bridge)
	if err != nil {
		return precheckResult{}, err
	}

	check := func(forceRefresh bool) (bool, error) {
		balance, err := p.exchange.GetCurrencyBalance(from, forceRefresh)
		if err != nil {
			return false, err
		}
		if fromPrice == nil {
			return false, nil
		}
		return balance**fromPrice > minNotional, nil
	}

	ok, err := check(false)
	if err != nil {
		return precheckResult{}, err
	}
	if ok {
		return precheckResult{proceed: true, shouldSell: true}, nil
	}

	p.logger.Debug("Cached balance resulted in an invalid opportunity, refreshing balance to confirm")
	ok, err = check(true)
	if err != nil {
		return precheckResult{}, err
	}
	if ok {
		return precheckResult{proceed: true, shouldSell: true}, nil
	}

	p.logger.Info("Skipping sell, refreshing balances, maybe the order already went ahead?")
	bridgeBalance, err := p.exchange.GetCurrencyBalance(p.bridge, false)
	if err != nil {
		return precheckResult{}, err
	}
	if bridgeBalance < minBridgeDustQuoteUnits {
		return precheckResult{proceed: false}, nil
	}
	p.logger.Info("Looks like there is bridge currency, will continue with buy")
	return precheckResult{proceed: true, shouldSell: false}, nil
}

func (p *Protocol) recordTrade(altCoin string, selling bool, result *exchange.OrderResult) error {
	trade := &models.Trade{
		AltCoinSymbol:     altCoin,
		CryptoCoinSymbol:  p.bridge,
		Selling:           selling,
		AltAmount:         result.Quantity,
		CryptoAmount:      result.QuoteQuantity,
		State:             models.TradeStateStarting,
	}
	if err := p.store.InsertTrade(trade); err != nil {
		return err
	}
	if err := p.store.AdvanceTradeState(trade, models.TradeStateOrdered); err != nil {
		return err
	}
	return p.store.AdvanceTradeState(trade, models.TradeStateComplete)
}
