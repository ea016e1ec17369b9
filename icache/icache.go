// Package icache provides an instrumentation-only instruction cache in
// front of Bus fetches, built on Akita's cache directory.
//
// It never changes architectural behavior: a miss still returns the
// correct bytes from the backing Bus, exactly as a hit would. Attaching
// or detaching it does not change what a Hart computes, only what
// hit/miss statistics are collected along the way.
package icache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds instruction-cache geometry.
type Config struct {
	Size          int
	Associativity int
	BlockSize     int
	HitLatency    uint64
	MissLatency   uint64
}

// DefaultConfig returns a small 4-way set-associative instruction cache
// sized for single-hart emulation runs rather than real silicon.
func DefaultConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// Statistics holds cache performance counters.
type Statistics struct {
	Fetches   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// ICache observes instruction fetches and reports hit/miss behavior.
// It is purely an observer: Observe never fails and never changes the
// bytes a caller already obtained from the Bus.
type ICache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	tags      [][]byte
	stats     Statistics
}

// New creates an instruction cache of the given configuration.
func New(config Config) *ICache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	tags := make([][]byte, totalBlocks)
	for i := range tags {
		tags[i] = make([]byte, config.BlockSize)
	}

	return &ICache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		tags: tags,
	}
}

// Stats returns the accumulated hit/miss counters.
func (c *ICache) Stats() Statistics {
	return c.stats
}

// HitRate returns Hits/Fetches, or 0 if nothing was fetched yet.
func (c *ICache) HitRate() float64 {
	if c.stats.Fetches == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(c.stats.Fetches)
}

// Observe records a fetch at addr, returning whether it hit.
func (c *ICache) Observe(addr uint64) bool {
	c.stats.Fetches++

	blockAddr := (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return true
	}

	c.stats.Misses++
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return false
	}
	if victim.IsValid {
		c.stats.Evictions++
	}
	victim.Tag = blockAddr
	victim.IsValid = true
	c.directory.Visit(victim)

	return false
}

// Reset invalidates all lines and clears statistics.
func (c *ICache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
