// Copyright 2025 The Fleetdfu Authors.
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

// Package cache wraps a hashicorp/golang-lru cache with an insertion
// timestamp and an optional TTL, serialized behind one mutex per instance.
// The critical section only ever touches the map (lock -> read/evict/insert
// -> unlock); no I/O happens while the lock is held.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	insertedAt time.Time
	value      V
}

// Cache is an LRU cache of capacity entries, evicting least-recently-used
// once full, where a read of an entry older than ttl (if ttl > 0) is
// treated as a miss.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, entry[V]]
	ttl time.Duration
}

// New creates a Cache bounded to capacity entries. ttl of zero disables
// expiry: an entry is valid for as long as it survives LRU eviction.
func New[K comparable, V any](capacity int, ttl time.Duration) (*Cache[K, V], error) {
	l, err := lru.New[K, entry[V]](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{lru: l, ttl: ttl}, nil
}

// Get returns the cached value for key, or the zero value and false if
// absent or expired. An expired entry is evicted on read.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.ttl > 0 && time.Since(e.insertedAt) > c.ttl {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set inserts or overwrites key's entry, stamping it with the current time.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{insertedAt: time.Now(), value: value})
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
