// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"sort"
	"sync"
)

// Registry tracks the documents written during a single wallet session.  Each
// document gets its own lock so writers of different documents never block
// each other, while two writers of the same document are serialized.
//
// The zero value is not usable; create registries with NewRegistry.
type Registry struct {
	mtx    sync.Mutex
	locks  map[string]*sync.Mutex
	closed bool
}

// NewRegistry returns an open registry with no active documents.
func NewRegistry() *Registry {
	return &Registry{
		locks: make(map[string]*sync.Mutex),
	}
}

// acquire locks the named document for writing.  The returned function
// releases the lock.
func (r *Registry) acquire(name string) (func(), error) {
	r.mtx.Lock()
	if r.closed {
		r.mtx.Unlock()
		return nil, ErrSessionClosed
	}
	l, ok := r.locks[name]
	if !ok {
		l = new(sync.Mutex)
		r.locks[name] = l
	}
	r.mtx.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// Active returns the sorted names of every document written through this
// registry so far.
func (r *Registry) Active() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.locks))
	for name := range r.locks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.closed
}

// Close ends the session.  Writes already holding a document lock complete,
// every later write fails with ErrSessionClosed.  Close is idempotent.
func (r *Registry) Close() {
	r.mtx.Lock()
	r.closed = true
	r.locks = make(map[string]*sync.Mutex)
	r.mtx.Unlock()
}
