// Copyright 2026 go-depthwise Authors
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

package dw

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// CodeManager turns a finished program into a callable kernel. Commit
// may be called concurrently for different programs; a returned Kernel
// stays valid for the process lifetime.
type CodeManager interface {
	Commit(*Program) (Kernel, error)
}

// Cache builds kernels on first use and memoizes them by signature.
// Concurrent requests for the same signature share one build; a failed
// build caches nothing, so a later request retries.
type Cache struct {
	mgr CodeManager

	mu      sync.RWMutex
	kernels map[Signature]Kernel

	group  singleflight.Group
	builds atomic.Int64
}

func NewCache(mgr CodeManager) *Cache {
	return &Cache{
		mgr:     mgr,
		kernels: make(map[Signature]Kernel),
	}
}

// GetOrCreate returns the kernel for sig, generating and committing it
// if no equal signature has been built yet.
func (c *Cache) GetOrCreate(sig Signature) (Kernel, error) {
	if err := sig.validate(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	k, ok := c.kernels[sig]
	c.mu.RUnlock()
	if ok {
		return k, nil
	}

	v, err, _ := c.group.Do(sig.key(), func() (any, error) {
		c.mu.RLock()
		k, ok := c.kernels[sig]
		c.mu.RUnlock()
		if ok {
			return k, nil
		}

		k, err := c.mgr.Commit(emit(sig))
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)

		c.mu.Lock()
		c.kernels[sig] = k
		c.mu.Unlock()
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Kernel), nil
}

// Builds reports how many kernels this cache has committed.
func (c *Cache) Builds() int64 {
	return c.builds.Load()
}

var std = sync.OnceValue(func() *Cache {
	return NewCache(defaultManager())
})

// GetOrCreate returns a kernel from the process-wide cache, backed by
// the best code manager for the current CPU and environment.
func GetOrCreate(sig Signature) (Kernel, error) {
	return std().GetOrCreate(sig)
}
