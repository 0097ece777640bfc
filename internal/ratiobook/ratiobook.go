// Package ratiobook implements the Ratio Book (spec §4.1): it holds no
// in-memory ratio cache of its own — every read and write goes through
// the store, inside whatever transaction the caller is already in.
package ratiobook

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/store"
)

// Book is the Ratio Book component.
type Book struct {
	store    *store.Store
	exchange exchange.Adapter
	logger   *zap.Logger
	bridge   string
}

// New builds a Ratio Book bound to a single store session (typically
// one obtained from store.WithinTransaction).
func New(s *store.Store, adapter exchange.Adapter, logger *zap.Logger, bridge string) *Book {
	return &Book{store: s, exchange: adapter, logger: logger, bridge: bridge}
}

func (b *Book) bothEnabled(from, to string, enabled map[string]bool) bool {
	return enabled[from] && enabled[to]
}

func enabledSet(coins []models.Coin) map[string]bool {
	m := make(map[string]bool, len(coins))
	for _, c := range coins {
		m[c.Symbol] = c.Enabled
	}
	return m
}

// InitializeCold seeds every uninitialized pair (both endpoints
// enabled) with ratio = price(from)/price(to), read live from the
// bridge ticker.
func (b *Book) InitializeCold() error {
	pairs, err := b.store.PairsWithNullRatio()
	if err != nil {
		return fmt.Errorf("could not list pairs to initialize: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	coins, err := b.store.ListCoins()
	if err != nil {
		return fmt.Errorf("could not list coins: %w", err)
	}
	enabled := enabledSet(coins)

	for i := range pairs {
		pair := pairs[i]
		if !b.bothEnabled(pair.FromCoinSymbol, pair.ToCoinSymbol, enabled) {
			continue
		}

		fromPrice, err := b.exchange.GetTickerPrice(pair.FromCoinSymbol + b.bridge)
		if err != nil || fromPrice == nil {
			b.logger.Info("Skipping cold init, from-coin price not found", zap.String("pair", pair.Name()))
			continue
		}
		toPrice, err := b.exchange.GetTickerPrice(pair.ToCoinSymbol + b.bridge)
		if err != nil || toPrice == nil {
			b.logger.Info("Skipping cold init, to-coin price not found", zap.String("pair", pair.Name()))
			continue
		}
		if *fromPrice <= 0 || *toPrice <= 0 {
			continue
		}

		ratio := *fromPrice / *toPrice
		if err := b.store.UpdatePairRatio(&pair, ratio); err != nil {
			return fmt.Errorf("could not persist cold ratio for %s: %w", pair.Name(), err)
		}
	}
	return nil
}

// InitializeWarmEWMA seeds every uninitialized pair (both endpoints
// enabled) with an EWMA of weight seeded from the last 2*weight
// 1-minute klines, batched per from-coin to amortize history fetches.
func (b *Book) InitializeWarmEWMA(weight int) error {
	if weight < 1 {
		return fmt.Errorf("ratio adjust weight must be >= 1, got %d", weight)
	}

	pairs, err := b.store.PairsWithNullRatio()
	if err != nil {
		return fmt.Errorf("could not list pairs to initialize: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	coins, err := b.store.ListCoins()
	if err != nil {
		return fmt.Errorf("could not list coins: %w", err)
	}
	enabled := enabledSet(coins)

	grouped := make(map[string][]models.Pair)
	for _, p := range pairs {
		if b.bothEnabled(p.FromCoinSymbol, p.ToCoinSymbol, enabled) {
			grouped[p.FromCoinSymbol] = append(grouped[p.FromCoinSymbol], p)
		}
	}

	now := time.Now().Truncate(time.Minute)
	start := now.Add(-time.Duration(weight*2) * time.Minute)
	end := now.Add(-time.Minute)

	histories := make(map[string][]float64)
	fetchHistory := func(symbol string) ([]float64, error) {
		if prices, ok := histories[symbol]; ok {
			return prices, nil
		}
		klines, err := b.exchange.GetHistoricalKlines(symbol+b.bridge, "1m", start, end, weight*2)
		if err != nil {
			return nil, err
		}
		prices := make([]float64, len(klines))
		for i, k := range klines {
			prices[i] = k.OpenPrice
		}
		histories[symbol] = prices
		return prices, nil
	}

	for fromSymbol, group := range grouped {
		fromPrices, err := fetchHistory(fromSymbol)
		if err != nil {
			b.logger.Warn("Could not fetch history for from-coin", zap.String("coin", fromSymbol), zap.Error(err))
			continue
		}

		for _, pair := range group {
			toPrices, err := fetchHistory(pair.ToCoinSymbol)
			if err != nil {
				b.logger.Warn("Could not fetch history for to-coin", zap.String("coin", pair.ToCoinSymbol), zap.Error(err))
				continue
			}

			if len(fromPrices) != weight*2 || len(toPrices) != weight*2 {
				b.logger.Info("Skipping warm init, insufficient history",
					zap.String("pair", pair.Name()), zap.Int("want", weight*2),
					zap.Int("from_len", len(fromPrices)), zap.Int("to_len", len(toPrices)))
				continue
			}

			var sma float64
			for i := 0; i < weight; i++ {
				sma += fromPrices[i] / toPrices[i]
			}
			sma /= float64(weight)

			r := sma
			for i := weight; i < weight*2; i++ {
				r = (float64(weight)*r + fromPrices[i]/toPrices[i]) / float64(weight+1)
			}

			p := pair
			if err := b.store.UpdatePairRatio(&p, r); err != nil {
				return fmt.Errorf("could not persist warm ratio for %s: %w", pair.Name(), err)
			}
		}
	}
	return nil
}

// PeriodicReanchorEWMA re-anchors every pair whose endpoints are both
// enabled, once per minute: ratio <- (W*ratio + sell(from)/buy(to))/(W+1).
func (b *Book) PeriodicReanchorEWMA(weight int) error {
	pairs, err := b.store.AllPairsBothEnabled()
	if err != nil {
		return fmt.Errorf("could not list pairs to reanchor: %w", err)
	}

	for i := range pairs {
		pair := pairs[i]
		if pair.Ratio == nil {
			continue
		}

		fromPrice, err := b.exchange.GetSellPrice(pair.FromCoinSymbol + b.bridge)
		if err != nil || fromPrice == nil {
			continue
		}
		toPrice, err := b.exchange.GetBuyPrice(pair.ToCoinSymbol + b.bridge)
		if err != nil || toPrice == nil {
			continue
		}
		if *toPrice <= 0 {
			continue
		}

		sample := *fromPrice / *toPrice
		newRatio := (float64(weight)**pair.Ratio + sample) / float64(weight+1)
		if err := b.store.UpdatePairRatio(&pair, newRatio); err != nil {
			return fmt.Errorf("could not persist reanchored ratio for %s: %w", pair.Name(), err)
		}
	}
	return nil
}

// PostJumpResetBaseline resets the inverse pair and every incoming
// pair of the newly acquired coin dest, using the buy-leg's actual
// fill price fillPrice — not the live ticker — for the forward
// direction. The inverse pair intentionally uses a fresh live read of
// source's price rather than the pre-jump sell fill price; this
// asymmetry is inherited from the original strategy and preserved.
func (b *Book) PostJumpResetBaseline(source, dest string, fillPrice float64) error {
	inverse, err := b.store.GetPair(dest, source)
	if err != nil {
		return fmt.Errorf("could not load inverse pair %s/%s: %w", dest, source, err)
	}
	sourcePrice, err := b.exchange.GetTickerPrice(source + b.bridge)
	if err != nil || sourcePrice == nil || *sourcePrice <= 0 {
		b.logger.Warn("Skipping inverse pair reset, source price unavailable", zap.String("pair", inverse.Name()))
	} else {
		if err := b.store.UpdatePairRatio(&inverse, fillPrice / *sourcePrice); err != nil {
			return fmt.Errorf("could not update inverse pair ratio: %w", err)
		}
	}

	incoming, err := b.store.PairsToEnabled(dest)
	if err != nil {
		return fmt.Errorf("could not list incoming pairs for %s: %w", dest, err)
	}
	for i := range incoming {
		pair := incoming[i]
		if pair.FromCoinSymbol == dest {
			continue
		}
		fromPrice, err := b.exchange.GetTickerPrice(pair.FromCoinSymbol + b.bridge)
		if err != nil || fromPrice == nil || *fromPrice <= 0 {
			b.logger.Warn("Skipping post-jump ratio reset, price unavailable", zap.String("pair", pair.Name()))
			continue
		}
		if err := b.store.UpdatePairRatio(&pair, *fromPrice/fillPrice); err != nil {
			return fmt.Errorf("could not update pair ratio for %s: %w", pair.Name(), err)
		}
	}
	return nil
}
