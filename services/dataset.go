package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"

	"deals-dashboard/models"
	"deals-dashboard/storage"
	"deals-dashboard/utils"
)

// Dataset is the normalized, immutable view of one version of the source.
type Dataset struct {
	Fingerprint string
	Deals       []*models.DealRecord
	Tiers       TierLookup
	Quality     models.QualityReport
}

// DatasetCache stores datasets by source fingerprint.
type DatasetCache interface {
	// GetOrCompute returns the cached dataset for key or stores the result
	// of compute. Concurrent misses may both compute; the last write wins.
	GetOrCompute(key string, compute func() (*Dataset, error)) (*Dataset, error)
	Purge()
}

// LRUCache is a size-bounded DatasetCache.
type LRUCache struct {
	entries *lru.Cache[string, *Dataset]
}

// NewLRUCache creates a cache holding at most size datasets.
func NewLRUCache(size int) (*LRUCache, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[string, *Dataset](size)
	if err != nil {
		return nil, eris.Wrap(err, "services: create dataset cache")
	}
	return &LRUCache{entries: c}, nil
}

func (c *LRUCache) GetOrCompute(key string, compute func() (*Dataset, error)) (*Dataset, error) {
	if ds, ok := c.entries.Get(key); ok {
		return ds, nil
	}
	ds, err := compute()
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, ds)
	return ds, nil
}

func (c *LRUCache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached datasets.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// Fingerprint hashes the tables' headers and cells. Equal content gives an
// equal fingerprint; nil tables hash differently from empty ones.
func Fingerprint(tables ...*models.Table) string {
	h := sha256.New()
	for _, t := range tables {
		if t == nil {
			writeUint(h, 0)
			continue
		}
		writeUint(h, 1)
		writeUint(h, uint64(len(t.Columns)))
		for _, c := range t.Columns {
			writeString(h, c)
		}
		writeUint(h, uint64(len(t.Rows)))
		for _, row := range t.Rows {
			for _, c := range t.Columns {
				writeString(h, row[c])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeUint(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

// BuildDataset normalizes both tables and joins tiers onto deals.
func BuildDataset(n *Normalizer, fingerprint string, deals, tiers *models.Table) (*Dataset, error) {
	records, quality, err := n.Normalize(deals)
	if err != nil {
		return nil, err
	}
	lookup := NewTierLookup(n.NormalizeTiers(tiers))
	JoinTiers(records, lookup)
	return &Dataset{
		Fingerprint: fingerprint,
		Deals:       records,
		Tiers:       lookup,
		Quality:     quality,
	}, nil
}

// Loader fetches the source tables and resolves them through the cache.
// Fetches younger than ttl are reused without touching the sources.
type Loader struct {
	deals      storage.TableSource
	tiers      storage.TableSource
	normalizer *Normalizer
	cache      DatasetCache
	logger     *utils.Logger
	ttl        time.Duration

	mu        sync.Mutex
	last      *Dataset
	lastFetch time.Time
}

// NewLoader wires the sources to a cache. tiers may be nil.
func NewLoader(deals, tiers storage.TableSource, cache DatasetCache, ttl time.Duration, logger *utils.Logger) *Loader {
	return &Loader{
		deals:      deals,
		tiers:      tiers,
		normalizer: NewNormalizer(logger),
		cache:      cache,
		logger:     logger,
		ttl:        ttl,
	}
}

// Load returns the dataset for the current source content. A failing deals
// source is an error; a failing tiers source degrades to no tiers.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if ds := l.fresh(); ds != nil {
		return ds, nil
	}

	var (
		dealsTable, tiersTable *models.Table
		dealsErr, tiersErr     error
	)
	pool := utils.NewWorkerPool(2, 0)
	pool.Submit(func() { dealsTable, dealsErr = l.deals.Load(ctx) })
	if l.tiers != nil {
		pool.Submit(func() { tiersTable, tiersErr = l.tiers.Load(ctx) })
	}
	pool.Wait()

	if dealsErr != nil {
		return nil, eris.Wrap(dealsErr, "services: load deals table")
	}
	if tiersErr != nil {
		l.logger.Warn("[loader] Could not load MAO tiers, continuing with blank tiers: %v", tiersErr)
		tiersTable = nil
	}

	fp := Fingerprint(dealsTable, tiersTable)
	ds, err := l.cache.GetOrCompute(fp, func() (*Dataset, error) {
		l.logger.Info("[loader] Cache miss for %s, normalizing %d rows", fp[:12], dealsTable.Len())
		return BuildDataset(l.normalizer, fp, dealsTable, tiersTable)
	})
	if err != nil {
		return nil, eris.Wrap(err, "services: build dataset")
	}

	l.mu.Lock()
	l.last, l.lastFetch = ds, time.Now()
	l.mu.Unlock()
	return ds, nil
}

func (l *Loader) fresh() *Dataset {
	if l.ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last != nil && time.Since(l.lastFetch) < l.ttl {
		return l.last
	}
	return nil
}

// Clear drops every cached dataset and forces the next Load to refetch.
func (l *Loader) Clear() {
	l.mu.Lock()
	l.last, l.lastFetch = nil, time.Time{}
	l.mu.Unlock()
	l.cache.Purge()
	l.logger.Info("[loader] Cache cleared")
}
