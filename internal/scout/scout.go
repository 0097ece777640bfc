// Package scout implements the Scout & Jump Engine (spec §4.2):
// profitability evaluation across all outgoing pairs of the currently
// held coin, fee-aware selection, the stuck-loss fallback, and the
// bridge-scout recovery mode.
package scout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/store"
)

// Opportunity is one evaluated candidate jump.
type Opportunity struct {
	Pair         models.Pair
	Score        float64
	CurrentPrice float64
	OtherPrice   float64
}

// Engine is the Scout & Jump Engine.
type Engine struct {
	store    *store.Store
	exchange exchange.Adapter
	logger   *zap.Logger

	Bridge          string
	ScoutMultiplier float64
	LossAfterHours  float64
	MaxLossPercent  float64
}

// New builds a Scout & Jump Engine bound to a single store session.
func New(s *store.Store, adapter exchange.Adapter, logger *zap.Logger) *Engine {
	return &Engine{store: s, exchange: adapter, logger: logger}
}

// EvaluateOutgoing computes the profitability score for every outgoing,
// ratio-initialized pair of currentSymbol, logging a ScoutEntry for
// each candidate evaluated. A candidate whose price cannot be obtained
// is skipped, never treated as an error.
func (e *Engine) EvaluateOutgoing(currentSymbol string, currentPrice float64) ([]Opportunity, error) {
	pairs, err := e.store.PairsFromEnabled(currentSymbol)
	if err != nil {
		return nil, fmt.Errorf("could not list outgoing pairs for %s: %w", currentSymbol, err)
	}

	type result struct {
		opp   *Opportunity
		entry models.ScoutEntry
		ok    bool
	}
	results := make([]result, len(pairs))

	// Only the network reads (GetTickerPrice/GetFee, inside e.score) run
	// concurrently here. The store write is deferred to the calling
	// goroutine below: a gorm transaction isn't safe for concurrent use,
	// and the scout cycle's store session is shared across every pair.
	g, _ := errgroup.WithContext(context.Background())
	for i := range pairs {
		i, pair := i, pairs[i]
		g.Go(func() error {
			if pair.Ratio == nil {
				return nil // unratioed pair is infinitely unprofitable; skip
			}
			if pair.ToCoinSymbol == e.Bridge {
				return nil
			}

			otherPrice, err := e.exchange.GetTickerPrice(pair.ToCoinSymbol + e.Bridge)
			if err != nil || otherPrice == nil {
				e.logger.Debug("Skipping scouting, candidate price not found", zap.String("pair", pair.Name()))
				return nil
			}

			score, entry := e.score(pair, currentPrice, *otherPrice)
			results[i] = result{
				opp:   &Opportunity{Pair: pair, Score: score, CurrentPrice: currentPrice, OtherPrice: *otherPrice},
				entry: entry,
				ok:    true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opportunities := make([]Opportunity, 0, len(pairs))
	for _, r := range results {
		if !r.ok {
			continue
		}
		if err := e.store.InsertScoutEntry(r.entry); err != nil {
			e.logger.Warn("Failed to log scout entry", zap.Error(err))
		}
		opportunities = append(opportunities, *r.opp)
	}
	return opportunities, nil
}

// score computes the fee-adjusted profitability of pair, given the
// current coin's live price and the candidate's live price.
func (e *Engine) score(pair models.Pair, currentPrice, otherPrice float64) (float64, models.ScoutEntry) {
	liveRatio := currentPrice / otherPrice

	feeSell, _ := e.exchange.GetFee(pair.FromCoinSymbol, e.Bridge, true)
	feeBuy, _ := e.exchange.GetFee(pair.ToCoinSymbol, e.Bridge, false)
	feeTotal := feeSell + feeBuy

	effectiveLive := liveRatio - feeTotal*e.ScoutMultiplier*liveRatio
	score := effectiveLive - *pair.Ratio

	entry := models.ScoutEntry{
		FromCoinSymbol:  pair.FromCoinSymbol,
		ToCoinSymbol:    pair.ToCoinSymbol,
		RememberedRatio: *pair.Ratio,
		CurrentPrice:    currentPrice,
		OtherPrice:      otherPrice,
	}
	return score, entry
}

// BestJump returns the most profitable opportunity with a positive
// score, ties broken by to-coin symbol ascending. Returns nil if no
// opportunity is profitable.
func BestJump(opportunities []Opportunity) *Opportunity {
	var best *Opportunity
	for i := range opportunities {
		o := opportunities[i]
		if o.Score <= 0 {
			continue
		}
		if best == nil || o.Score > best.Score ||
			(o.Score == best.Score && o.Pair.ToCoinSymbol < best.Pair.ToCoinSymbol) {
			best = &o
		}
	}
	return best
}

// StuckLossFallback implements the stuck-position loss cutoff (spec
// §4.2). Returns nil when the fallback doesn't apply, isn't triggered
// by the elapsed hold time, or finds nothing within the allowed loss
// band.
func (e *Engine) StuckLossFallback(now time.Time, since time.Time, opportunities []Opportunity) *Opportunity {
	if e.LossAfterHours <= 0 {
		return nil
	}
	if now.Sub(since) < time.Duration(e.LossAfterHours*float64(time.Hour)) {
		return nil
	}

	maxLossRatio := (100 - e.MaxLossPercent) / 100

	var best *Opportunity
	var bestAny *Opportunity
	for i := range opportunities {
		o := opportunities[i]
		if o.Pair.Ratio == nil {
			continue
		}
		remembered := *o.Pair.Ratio
		realizedRatio := (o.Score + remembered) / remembered

		if bestAny == nil || o.Score > bestAny.Score {
			bestAny = &o
		}
		if realizedRatio >= maxLossRatio {
			if best == nil || o.Score > best.Score {
				best = &o
			}
		}
	}

	if best != nil {
		return best
	}
	if bestAny != nil {
		remembered := *bestAny.Pair.Ratio
		realizedRatio := (bestAny.Score + remembered) / remembered
		lossEstimate := (1 - realizedRatio) * 100
		e.logger.Debug("Loss is currently too great to settle",
			zap.String("pair", bestAny.Pair.Name()), zap.Float64("loss_estimate_pct", lossEstimate))
	}
	return nil
}

// BridgeScout iterates every enabled coin and buys the unique local
// ratio minimum — the coin for which every outgoing score is negative
// — using whatever bridge balance exceeds its min-notional. At most
// one purchase per invocation.
func (e *Engine) BridgeScout() (*string, error) {
	coins, err := e.store.EnabledCoins()
	if err != nil {
		return nil, fmt.Errorf("could not list enabled coins: %w", err)
	}
	sort.Slice(coins, func(i, j int) bool { return coins[i].Symbol < coins[j].Symbol })

	bridgeBalance, err := e.exchange.GetCurrencyBalance(e.Bridge, false)
	if err != nil {
		return nil, fmt.Errorf("could not read bridge balance: %w", err)
	}

	for _, coin := range coins {
		price, err := e.exchange.GetTickerPrice(coin.Symbol + e.Bridge)
		if err != nil || price == nil {
			continue
		}

		opportunities, err := e.EvaluateOutgoing(coin.Symbol, *price)
		if err != nil {
			return nil, err
		}
		if len(opportunities) == 0 {
			continue
		}

		allNegative := true
		for _, o := range opportunities {
			if o.Score > 0 {
				allNegative = false
				break
			}
		}
		if !allNegative {
			continue
		}

		minNotional, err := e.exchange.GetMinNotional(coin.Symbol, e.Bridge)
		if err != nil {
			return nil, err
		}
		if bridgeBalance <= minNotional {
			continue
		}

		e.logger.Info("Bridge scout purchasing local-minimum coin", zap.String("coin", coin.Symbol))
		if _, err := e.exchange.BuyAlt(coin.Symbol, e.Bridge, nil); err != nil {
			return nil, fmt.Errorf("bridge scout buy failed for %s: %w", coin.Symbol, err)
		}
		symbol := coin.Symbol
		return &symbol, nil
	}
	return nil, nil
}
