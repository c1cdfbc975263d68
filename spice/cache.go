package spice

import (
	"context"
	"hash/fnv"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheStats holds memoization statistics.
type CacheStats struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	// Batches counts calls that reached the wrapped simulator.
	Batches uint64
}

type cacheEntry struct {
	key string
	row Row
}

// CachedSimulator memoizes measurement rows per (testbench, parameter row)
// in a set-associative LRU directory. Only rows that miss are simulated.
type CachedSimulator struct {
	next      Simulator
	ways      int
	directory *akitacache.DirectoryImpl
	entries   []cacheEntry
	stats     CacheStats
}

// NewCachedSimulator wraps next with a cache of about entries rows.
func NewCachedSimulator(next Simulator, entries, ways int) *CachedSimulator {
	if ways < 1 {
		ways = 1
	}
	numSets := entries / ways
	if numSets < 1 {
		numSets = 1
	}
	return &CachedSimulator{
		next: next,
		ways: ways,
		directory: akitacache.NewDirectory(
			numSets,
			ways,
			1,
			akitacache.NewLRUVictimFinder(),
		),
		entries: make([]cacheEntry, numSets*ways),
	}
}

// Stats returns the cache statistics.
func (c *CachedSimulator) Stats() CacheStats {
	return c.stats
}

// Reset drops every cached row.
func (c *CachedSimulator) Reset() {
	c.directory.Reset()
	for i := range c.entries {
		c.entries[i] = cacheEntry{}
	}
}

func (c *CachedSimulator) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.ways + block.WayID
}

// Simulate implements Simulator.
func (c *CachedSimulator) Simulate(ctx context.Context, tbPath string, sweep *Sweep) ([]Row, error) {
	content, err := os.ReadFile(tbPath)
	if err != nil {
		return nil, errors.Wrap(err, "read testbench")
	}
	prefix := tbPath + "\x00" + strconv.FormatUint(digest(string(content)), 16)

	out := make([]Row, sweep.Len())
	keys := make([]string, sweep.Len())
	missing := NewSweep(sweep.Names)
	var missIdx []int
	for i, row := range sweep.Rows {
		keys[i] = rowKey(prefix, sweep.Names, row)
		c.stats.Lookups++
		if r, ok := c.lookup(keys[i]); ok {
			c.stats.Hits++
			out[i] = r
			continue
		}
		c.stats.Misses++
		missing.Rows = append(missing.Rows, row)
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	c.stats.Batches++
	rows, err := c.next.Simulate(ctx, tbPath, missing)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(missIdx) {
		return nil, errors.Errorf("simulator returned %d rows for %d requested", len(rows), len(missIdx))
	}
	for j, i := range missIdx {
		out[i] = rows[j]
		c.store(keys[i], rows[j])
	}
	return out, nil
}

func (c *CachedSimulator) lookup(key string) (Row, bool) {
	block := c.directory.Lookup(0, digest(key))
	if block == nil || !block.IsValid {
		return Row{}, false
	}
	e := c.entries[c.blockIndex(block)]
	if e.key != key {
		return Row{}, false
	}
	c.directory.Visit(block)
	return e.row, true
}

func (c *CachedSimulator) store(key string, row Row) {
	addr := digest(key)
	block := c.directory.Lookup(0, addr)
	if block == nil {
		block = c.directory.FindVictim(addr)
		if block == nil {
			return
		}
		if block.IsValid {
			c.stats.Evictions++
		}
	}
	block.Tag = addr
	block.IsValid = true
	c.entries[c.blockIndex(block)] = cacheEntry{key: key, row: row}
	c.directory.Visit(block)
}

func rowKey(prefix string, names []string, row []float64) string {
	var b strings.Builder
	b.WriteString(prefix)
	for i, name := range names {
		b.WriteByte('\x00')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(row[i], 'g', -1, 64))
	}
	return b.String()
}

func digest(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
