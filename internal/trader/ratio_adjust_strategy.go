package trader

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RatioAdjustStrategy warm-seeds the ratio book from historical klines
// and re-anchors every enabled pair once a minute with an EWMA, on top
// of the post-jump baseline reset every successful jump performs.
// Grounded on ratio_adjust_strategy.py.
type RatioAdjustStrategy struct {
	reinitThreshold time.Time
	failedBuyOrder  bool
}

func (s *RatioAdjustStrategy) Name() string { return "ratio_adjust" }

func (s *RatioAdjustStrategy) Initialize(ctx Context) error {
	if err := ensureCurrentCoin(ctx, true); err != nil {
		return err
	}
	if err := ctx.Book.InitializeWarmEWMA(ctx.Cfg.RatioAdjustWeight); err != nil {
		return err
	}
	s.reinitThreshold = ctx.Exchange.Now().Truncate(time.Minute)
	ctx.Logger.Warn("ratio_adjust strategy is experimental and can lead to losses if misconfigured",
		zap.Int("weight", ctx.Cfg.RatioAdjustWeight))
	return nil
}

func (s *RatioAdjustStrategy) Scout(ctx Context) error {
	if s.failedBuyOrder {
		if err := s.BridgeScout(ctx); err != nil {
			return err
		}
		s.failedBuyOrder = false
	}

	now := ctx.Exchange.Now()
	if !now.Before(s.reinitThreshold) {
		if err := ctx.Book.PeriodicReanchorEWMA(ctx.Cfg.RatioAdjustWeight); err != nil {
			return fmt.Errorf("periodic ratio reanchor failed: %w", err)
		}
		s.reinitThreshold = now.Truncate(time.Minute).Add(time.Minute)
	}

	failedBuyOrder, err := jumpToBestCoin(ctx, ctx.Exchange.GetSellPrice)
	if err != nil {
		return err
	}
	if failedBuyOrder {
		s.failedBuyOrder = true
	}
	return nil
}

func (s *RatioAdjustStrategy) BridgeScout(ctx Context) error {
	cc, err := ctx.Store.GetCurrentCoin()
	if err != nil {
		return fmt.Errorf("could not get current coin: %w", err)
	}
	hasBalance, err := currentCoinHasBridgeBalance(ctx, *cc)
	if err != nil {
		return fmt.Errorf("could not check current coin balance: %w", err)
	}
	if hasBalance {
		return nil
	}
	return runBridgeScout(ctx, true)
}
