// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wtxmgr caches the unspent transaction outputs reported by the
// indexer for each wallet address.
//
// The indexer is the source of truth: every refresh of an address replaces
// that address's outputs wholesale.  Balances are never stored, they are
// always summed from the cached outputs so the two cannot disagree.
package wtxmgr
