package exchange

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// priceStream is the background context that keeps a thread-safe cache
// of last-trade and book-ticker prices, read synchronously by the
// trading loop (spec §5's "third background context"). The upstream
// project streams this over a websocket user-data/price feed; lacking
// a websocket dependency anywhere in the example corpus, this polls the
// same REST endpoints the rest of the adapter already uses, on a tight
// interval, through the same rate limiter and retry path.
type priceStream struct {
	client *RestClient
	logger *zap.Logger

	mu     sync.RWMutex
	prices map[string]float64
	books  map[string]bookTicker

	stopCh chan struct{}
	doneCh chan struct{}
}

func newPriceStream(client *RestClient, logger *zap.Logger) *priceStream {
	return &priceStream{
		client: client,
		logger: logger.Named("price-stream"),
		prices: make(map[string]float64),
		books:  make(map[string]bookTicker),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *priceStream) start() {
	go s.loop()
}

func (s *priceStream) stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *priceStream) loop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	s.refresh()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *priceStream) refresh() {
	if prices, err := s.client.getAllTickerPrices(); err == nil {
		s.mu.Lock()
		s.prices = prices
		s.mu.Unlock()
	} else {
		s.logger.Warn("Failed to refresh ticker prices", zap.Error(err))
	}

	if books, err := s.client.getAllBookTickers(); err == nil {
		s.mu.Lock()
		s.books = books
		s.mu.Unlock()
	} else {
		s.logger.Warn("Failed to refresh book tickers", zap.Error(err))
	}
}

func (s *priceStream) lastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.prices[symbol]
	return v, ok
}

func (s *priceStream) bid(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	if !ok || b.BidPrice == "" {
		return 0, false
	}
	v, err := parseFloatSafe(b.BidPrice)
	return v, err == nil
}

func (s *priceStream) ask(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	if !ok || b.AskPrice == "" {
		return 0, false
	}
	v, err := parseFloatSafe(b.AskPrice)
	return v, err == nil
}
