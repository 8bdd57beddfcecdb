// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package cache provides a bounded cache for search results.
//
// The cache is keyed by a fingerprint of the normalized query text plus the
// requested result count, so trivial formatting differences still hit. It is
// backed by an LRU that evicts by access recency, and it is purged wholesale
// whenever the corpus changes; there is no partial invalidation.
package cache

import (
	"encoding/binary"
	"strings"

	"github.com/go-crypt/x/blake2b"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poiesic/newsdex/core"
)

// DefaultCapacity is the default number of cached result sets.
const DefaultCapacity = 100

// Key identifies a cached result set.
type Key [16]byte

// ResultCache holds recently computed search results. Safe for concurrent
// use. Empty result sets are never cached so a transient miss cannot stick.
type ResultCache struct {
	lru *lru.Cache[Key, []core.SearchResult]
}

// New creates a result cache with the given capacity; non-positive values
// fall back to DefaultCapacity.
func New(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[Key, []core.SearchResult](capacity)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: inner}, nil
}

// KeyFor computes the cache key for a query and result count. The query is
// lowercased and whitespace-collapsed first, so "Rate  Hike" and "rate hike"
// share an entry.
func KeyFor(query string, k int) Key {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))

	var kbuf [8]byte
	binary.BigEndian.PutUint64(kbuf[:], uint64(k))

	digest := blake2b.Sum256(append([]byte(normalized), kbuf[:]...))

	var key Key
	copy(key[:], digest[:])
	return key
}

// Get returns the cached results for the key. The boolean reports whether
// the entry was present; a miss is not an error.
func (c *ResultCache) Get(key Key) ([]core.SearchResult, bool) {
	return c.lru.Get(key)
}

// Put stores results under the key. Empty result sets are dropped.
func (c *ResultCache) Put(key Key, results []core.SearchResult) {
	if len(results) == 0 {
		return
	}
	c.lru.Add(key, results)
}

// Purge removes every entry. Called on any corpus mutation.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
