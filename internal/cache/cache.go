package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// Cache provides fast in-memory caching for market data. Quotes expire
// on a short TTL so a pair sharing an instrument with another pair
// reuses one pricing call within a cycle; candle series are cached
// longer since a model refresh is the only consumer.
type Cache struct {
	quotes  *gocache.Cache
	candles *gocache.Cache
	ttl     time.Duration
}

// NewCache creates a new cache instance
func NewCache(quoteTTL time.Duration) *Cache {
	return &Cache{
		quotes:  gocache.New(quoteTTL, quoteTTL*2),
		candles: gocache.New(5*time.Minute, 10*time.Minute),
		ttl:     quoteTTL,
	}
}

// GetQuote retrieves a cached quote
func (c *Cache) GetQuote(instrument string) (*models.Quote, bool) {
	if val, found := c.quotes.Get(instrument); found {
		if quote, ok := val.(*models.Quote); ok {
			return quote, true
		}
	}
	return nil, false
}

// SetQuote caches a quote
func (c *Cache) SetQuote(instrument string, quote *models.Quote) {
	c.quotes.Set(instrument, quote, c.ttl)
}

// GetCandles retrieves a cached candle series
func (c *Cache) GetCandles(instrument string) (*models.CandleSeries, bool) {
	if val, found := c.candles.Get(instrument); found {
		if series, ok := val.(*models.CandleSeries); ok {
			return series, true
		}
	}
	return nil, false
}

// SetCandles caches a candle series
func (c *Cache) SetCandles(instrument string, series *models.CandleSeries) {
	c.candles.Set(instrument, series, 5*time.Minute)
}

// Clear removes all cached data
func (c *Cache) Clear() {
	c.quotes.Flush()
	c.candles.Flush()
}

// Stats returns cache statistics
type Stats struct {
	QuoteCount  int
	CandleCount int
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() Stats {
	return Stats{
		QuoteCount:  c.quotes.ItemCount(),
		CandleCount: c.candles.ItemCount(),
	}
}
