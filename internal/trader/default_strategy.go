package trader

// DefaultStrategy cold-initializes the ratio book from live prices and
// resets baselines immediately after every jump, using the live fill
// price. Grounded on auto_trader.py's base AutoTrader behavior (no
// periodic re-anchor, no EWMA).
type DefaultStrategy struct{}

func (s *DefaultStrategy) Name() string { return "default" }

func (s *DefaultStrategy) Initialize(ctx Context) error {
	if err := ensureCurrentCoin(ctx, false); err != nil {
		return err
	}
	return ctx.Book.InitializeCold()
}

func (s *DefaultStrategy) Scout(ctx Context) error {
	_, err := jumpToBestCoin(ctx, ctx.Exchange.GetTickerPrice)
	return err
}

func (s *DefaultStrategy) BridgeScout(ctx Context) error {
	return runBridgeScout(ctx, false)
}
