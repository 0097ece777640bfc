// Package trader wires the store, exchange, ratio book, scout engine,
// and transaction protocol together behind a small Strategy interface
// (spec §4, §9): two concrete strategies differ in how they seed and
// maintain the ratio book, in the price they scout the current coin at,
// and in how they recover from a failed buy leg, sharing the jump and
// bridge-scout control flow through core.go.
package trader

import (
	"go.uber.org/zap"

	"ratio-jump-trader/internal/config"
	"ratio-jump-trader/internal/exchange"
	"ratio-jump-trader/internal/ratiobook"
	"ratio-jump-trader/internal/scout"
	"ratio-jump-trader/internal/store"
	"ratio-jump-trader/internal/txn"
)

// Context bundles every collaborator a strategy needs for one call,
// built fresh per cycle from whatever store session the caller is
// inside (usually a store.WithinTransaction session).
type Context struct {
	Store    *store.Store
	Exchange exchange.Adapter
	Book     *ratiobook.Book
	Scout    *scout.Engine
	Txn      *txn.Protocol
	Logger   *zap.Logger
	Cfg      config.Trading
}

// Strategy is the pluggable trading policy (spec §9's capability set).
type Strategy interface {
	// Name returns the strategy's registry key.
	Name() string

	// Initialize seeds the ratio book and the current-coin pointer. Called
	// once at startup inside a single transaction.
	Initialize(ctx Context) error

	// Scout runs one trading cycle: possibly re-anchoring the ratio book,
	// evaluating the current coin's outgoing pairs, and jumping if
	// profitable.
	Scout(ctx Context) error

	// BridgeScout runs the bridge-balance recovery pass, normally invoked
	// only after a failed buy leg.
	BridgeScout(ctx Context) error
}
