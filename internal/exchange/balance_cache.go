package exchange

import "sync"

// balanceCache is the single-writer (account stream)/single-reader
// (trading loop) structure holding last-known free balances. The
// reader may demand a forced refresh (see RestClient.GetCurrencyBalance)
// to bypass it entirely.
type balanceCache struct {
	mu     sync.RWMutex
	values map[string]float64
}

func newBalanceCache() *balanceCache {
	return &balanceCache{values: make(map[string]float64)}
}

func (b *balanceCache) get(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[symbol]
	return v, ok
}

func (b *balanceCache) set(symbol string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[symbol] = value
}
