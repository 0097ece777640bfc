package trader

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"ratio-jump-trader/internal/models"
	"ratio-jump-trader/internal/scout"
	"ratio-jump-trader/internal/store"
)

// jumpToBestCoin evaluates every outgoing pair of the current coin and
// executes the best profitable jump, falling back to the stuck-loss
// cutoff when nothing is outright profitable. Grounded on
// auto_trader.py's _jump_to_best_coin. Returns whether the jump was
// attempted and its buy leg failed, so ratio_adjust can schedule a
// bridge-scout recovery pass on the next cycle.
func jumpToBestCoin(ctx Context, currentPrice func(symbol string) (*float64, error)) (bool, error) {
	cc, err := ctx.Store.GetCurrentCoin()
	if err != nil {
		return false, fmt.Errorf("could not get current coin: %w", err)
	}

	price, err := currentPrice(cc.Symbol + ctx.Cfg.Bridge)
	if err != nil {
		return false, fmt.Errorf("could not get current coin price: %w", err)
	}
	if price == nil {
		ctx.Logger.Info("Skipping scouting, current coin price not found", zap.String("coin", cc.Symbol))
		return false, nil
	}

	opportunities, err := ctx.Scout.EvaluateOutgoing(cc.Symbol, *price)
	if err != nil {
		return false, fmt.Errorf("could not evaluate outgoing pairs: %w", err)
	}

	best := scout.BestJump(opportunities)
	if best == nil {
		best = ctx.Scout.StuckLossFallback(time.Now(), cc.Since, opportunities)
	}
	if best == nil {
		return false, nil
	}

	ctx.Logger.Info("Will be jumping from current coin",
		zap.String("from", cc.Symbol), zap.String("to", best.Pair.ToCoinSymbol), zap.Float64("score", best.Score))

	result, err := ctx.Txn.Execute(cc.Symbol, best.Pair.ToCoinSymbol)
	if err != nil {
		return false, fmt.Errorf("jump transaction failed: %w", err)
	}
	return result.FailedBuyOrder, nil
}

// ensureCurrentCoin seeds the current-coin pointer the first time a
// strategy runs, picking a random supported coin when no config
// default is set. When buyIfRandom is set, a random pick is followed
// by an immediate market buy so the bot actually holds it, matching
// ratio_adjust_strategy.py's initialize_current_coin.
func ensureCurrentCoin(ctx Context, buyIfRandom bool) error {
	_, err := ctx.Store.GetCurrentCoin()
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNoCurrentCoin) {
		return fmt.Errorf("could not check current coin: %w", err)
	}

	symbol := ctx.Cfg.CurrentCoinSymbol
	random := symbol == ""
	if random {
		candidates := make([]string, 0, len(ctx.Cfg.SupportedCoinList))
		for _, c := range ctx.Cfg.SupportedCoinList {
			if c != ctx.Cfg.Bridge {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) == 0 {
			return fmt.Errorf("no selectable coins configured, cannot set initial current coin")
		}
		symbol = candidates[rand.Intn(len(candidates))]
		ctx.Logger.Info("No current coin configured, selected one randomly", zap.String("coin", symbol))
	}

	if err := ctx.Store.SetCurrentCoin(symbol, time.Now()); err != nil {
		return fmt.Errorf("could not set initial current coin: %w", err)
	}

	if random && buyIfRandom {
		ctx.Logger.Info("Purchasing randomly selected coin to begin trading", zap.String("coin", symbol))
		price, err := ctx.Exchange.GetBuyPrice(symbol + ctx.Cfg.Bridge)
		if err != nil || price == nil {
			return fmt.Errorf("could not get buy price for initial coin %s: %w", symbol, err)
		}
		if _, err := ctx.Exchange.BuyAlt(symbol, ctx.Cfg.Bridge, price); err != nil {
			return fmt.Errorf("could not purchase initial coin %s: %w", symbol, err)
		}
	}
	return nil
}

// runBridgeScout executes the bridge-balance recovery pass. Unlike a
// normal jump it never touches the ratio book: bridge_scout in
// auto_trader.py only spends leftover bridge balance, it doesn't
// reset any pair's remembered ratio.
func runBridgeScout(ctx Context, alsoSetCurrentCoin bool) error {
	symbol, err := ctx.Scout.BridgeScout()
	if err != nil {
		return fmt.Errorf("bridge scout failed: %w", err)
	}
	if symbol == nil {
		return nil
	}
	if alsoSetCurrentCoin {
		if err := ctx.Store.SetCurrentCoin(*symbol, time.Now()); err != nil {
			return fmt.Errorf("could not set current coin after bridge scout: %w", err)
		}
	}
	return nil
}

// currentCoinHasBridgeBalance reports whether the current coin already
// carries enough balance to be worth continuing to scout without
// running bridge_scout (ratio_adjust_strategy.py's bridge_scout guard).
func currentCoinHasBridgeBalance(ctx Context, coin models.CurrentCoin) (bool, error) {
	balance, err := ctx.Exchange.GetCurrencyBalance(coin.Symbol, false)
	if err != nil {
		return false, err
	}
	minNotional, err := ctx.Exchange.GetMinNotional(coin.Symbol, ctx.Cfg.Bridge)
	if err != nil {
		return false, err
	}
	return balance > minNotional, nil
}
