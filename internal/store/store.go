// Package store is the persistent-store collaborator: pair/coin/trade
// rows, value history, the current-coin pointer. Every decision in the
// core reads and writes through a single transactional session per
// cycle, so the store is the only mutable shared resource in the
// system (see spec §5).
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ratio-jump-trader/internal/models"
)

// Store wraps a gorm session. A Store built from WithinTransaction
// shares one underlying transaction with every other Store method
// call made through it, so a whole scout cycle can commit atomically.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at dsn. It does not migrate the
// schema; call CreateSchema for that.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open gorm.DB (used by tests against an
// in-memory sqlite database).
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the schema if it doesn't already exist.
func (s *Store) CreateSchema() error {
	return s.db.AutoMigrate(
		&models.Coin{},
		&models.Pair{},
		&models.CurrentCoin{},
		&models.Trade{},
		&models.ScoutEntry{},
		&models.CoinValue{},
	)
}

// WithinTransaction runs fn against a Store bound to a single
// transaction, committing on success and rolling back on error or
// panic. Use this for every scout/value/prune cycle so observers never
// see a partial write.
func (s *Store) WithinTransaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// SetSupportedCoins idempotently upserts the coin list and generates
// every ordered directed pair between distinct coins (FirstOrCreate,
// so existing rows and their ratios are left untouched).
func (s *Store) SetSupportedCoins(symbols []string) error {
	for _, symbol := range symbols {
		coin := models.Coin{Symbol: symbol, Enabled: true}
		if err := s.db.Where(models.Coin{Symbol: symbol}).FirstOrCreate(&coin).Error; err != nil {
			return fmt.Errorf("failed to upsert coin %s: %w", symbol, err)
		}
	}

	for _, from := range symbols {
		for _, to := range symbols {
			if from == to {
				continue
			}
			pair := models.Pair{FromCoinSymbol: from, ToCoinSymbol: to}
			if err := s.db.Where(models.Pair{FromCoinSymbol: from, ToCoinSymbol: to}).FirstOrCreate(&pair).Error; err != nil {
				return fmt.Errorf("failed to upsert pair %s/%s: %w", from, to, err)
			}
		}
	}
	return nil
}

// ListCoins returns every coin row, enabled or not.
func (s *Store) ListCoins() ([]models.Coin, error) {
	var coins []models.Coin
	err := s.db.Find(&coins).Error
	return coins, err
}

// EnabledCoins returns only enabled coins.
func (s *Store) EnabledCoins() ([]models.Coin, error) {
	var coins []models.Coin
	err := s.db.Where("enabled = ?", true).Find(&coins).Error
	return coins, err
}

// SetCoinEnabled toggles a coin's enabled flag.
func (s *Store) SetCoinEnabled(symbol string, enabled bool) error {
	return s.db.Model(&models.Coin{}).Where("symbol = ?", symbol).Update("enabled", enabled).Error
}

// ErrNoCurrentCoin is returned by GetCurrentCoin before bootstrap.
var ErrNoCurrentCoin = errors.New("no current coin set")

// GetCurrentCoin returns the singleton current-coin row.
func (s *Store) GetCurrentCoin() (*models.CurrentCoin, error) {
	var cc models.CurrentCoin
	err := s.db.First(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCurrentCoin
	}
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

// SetCurrentCoin overwrites (or creates) the singleton current-coin
// row with symbol and a fresh Since timestamp.
func (s *Store) SetCurrentCoin(symbol string, since time.Time) error {
	var cc models.CurrentCoin
	err := s.db.First(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cc = models.CurrentCoin{Symbol: symbol, Since: since}
		return s.db.Create(&cc).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cc).Updates(map[string]interface{}{
		"symbol": symbol,
		"since":  since,
	}).Error
}

// PairsWithNullRatio returns every pair whose ratio has never been
// initialized.
func (s *Store) PairsWithNullRatio() ([]models.Pair, error) {
	var pairs []models.Pair
	err := s.db.Where("ratio IS NULL").Find(&pairs).Error
	return pairs, err
}

// PairsFrom returns every outgoing pair for fromSymbol.
func (s *Store) PairsFrom(fromSymbol string) ([]models.Pair, error) {
	var pairs []models.Pair
	err := s.db.Where("from_coin_symbol = ?", fromSymbol).Find(&pairs).Error
	return pairs, err
}

// PairsFromEnabled returns outgoing pairs for fromSymbol whose
// destination coin is enabled.
func (s *Store) PairsFromEnabled(fromSymbol string) ([]models.Pair, error) {
	var pairs []models.Pair
	err := s.db.
		Joins("JOIN coins ON coins.symbol = pairs.to_coin_symbol").
		Where("pairs.from_coin_symbol = ? AND coins.enabled = ?", fromSymbol, true).
		Find(&pairs).Error
	return pairs, err
}

// PairsToEnabled returns incoming pairs for toSymbol whose source coin
// is enabled, excluding the self-referential X==toSymbol case (which
// cannot exist since from != to is an invariant).
func (s *Store) PairsToEnabled(toSymbol string) ([]models.Pair, error) {
	var pairs []models.Pair
	err := s.db.
		Joins("JOIN coins ON coins.symbol = pairs.from_coin_symbol").
		Where("pairs.to_coin_symbol = ? AND coins.enabled = ?", toSymbol, true).
		Find(&pairs).Error
	return pairs, err
}

// AllPairsBothEnabled returns every pair whose endpoints are both
// enabled.
func (s *Store) AllPairsBothEnabled() ([]models.Pair, error) {
	var pairs []models.Pair
	err := s.db.
		Joins("JOIN coins c1 ON c1.symbol = pairs.from_coin_symbol AND c1.enabled = ?", true).
		Joins("JOIN coins c2 ON c2.symbol = pairs.to_coin_symbol AND c2.enabled = ?", true).
		Find(&pairs).Error
	return pairs, err
}

// GetPair returns a single ordered pair.
func (s *Store) GetPair(from, to string) (models.Pair, error) {
	var pair models.Pair
	err := s.db.Where("from_coin_symbol = ? AND to_coin_symbol = ?", from, to).First(&pair).Error
	return pair, err
}

// UpdatePairRatio sets pair.Ratio in place.
func (s *Store) UpdatePairRatio(pair *models.Pair, ratio float64) error {
	return s.db.Model(pair).Update("ratio", ratio).Error
}

// InsertScoutEntry persists one diagnostic scout log row.
func (s *Store) InsertScoutEntry(entry models.ScoutEntry) error {
	return s.db.Create(&entry).Error
}

// InsertTrade persists a new trade row (typically in STARTING state).
func (s *Store) InsertTrade(trade *models.Trade) error {
	return s.db.Create(trade).Error
}

// AdvanceTradeState moves a trade forward in its state machine. Callers
// are responsible for respecting the monotonic ordering.
func (s *Store) AdvanceTradeState(trade *models.Trade, state models.TradeState) error {
	trade.State = state
	return s.db.Model(trade).Update("state", state).Error
}

// InsertCoinValue persists a balance valuation snapshot.
func (s *Store) InsertCoinValue(cv models.CoinValue) error {
	return s.db.Create(&cv).Error
}

// PruneScoutHistory deletes ScoutEntry rows older than olderThan.
func (s *Store) PruneScoutHistory(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.db.Where("created_at < ?", cutoff).Delete(&models.ScoutEntry{}).Error
}

// PruneValueHistory deletes CoinValue rows older than olderThan.
func (s *Store) PruneValueHistory(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.db.Where("created_at < ?", cutoff).Delete(&models.CoinValue{}).Error
}

// RecentCompletedBuys returns the last limit BUY trades in COMPLETE
// state, most recent first — used to render the progress report.
func (s *Store) RecentCompletedBuys(limit int) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.
		Where("selling = ? AND state = ?", false, models.TradeStateComplete).
		Order("created_at desc").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// PreviousCompletedSell returns the most recent COMPLETE sell trade of
// coinSymbol that happened before the given trade's timestamp — used
// to compute the "change" column of the progress report.
func (s *Store) PreviousCompletedSell(coinSymbol string, before time.Time) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.
		Where("alt_coin_symbol = ? AND selling = ? AND state = ? AND created_at < ?",
			coinSymbol, true, models.TradeStateComplete, before).
		Order("created_at desc").
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// DB exposes the underlying *gorm.DB for callers that need lower-level
// access (e.g. tests).
func (s *Store) DB() *gorm.DB {
	return s.db
}
