// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// documentsBucket is the top level bucket holding every JSON document.
var documentsBucket = []byte("documents")

// DB is a bolt backed document store bound to one wallet session registry.
type DB struct {
	bolt *bolt.DB
	reg  *Registry
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// Open opens the database file at dbPath, creating it and its parent
// directory when they do not exist yet.  The timeout bounds how long Open
// waits for the file lock held by another process.  Writes are serialized
// through reg.
func Open(dbPath string, timeout time.Duration, reg *Registry) (*DB, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	if !fileExists(dbPath) {
		// Create the parent directory if it doesn't exist.
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0700); err != nil {
			return nil, err
		}
	}

	options := &bolt.Options{
		NoFreelistSync: true,
		FreelistType:   bolt.FreelistMapType,
		Timeout:        timeout,
	}
	boltDB, err := bolt.Open(dbPath, 0600, options)
	if err != nil {
		return nil, convertErr(err)
	}

	err = boltDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		boltDB.Close()
		return nil, convertErr(err)
	}

	log.Debugf("Opened wallet database %v", dbPath)

	return &DB{bolt: boltDB, reg: reg}, nil
}

// Registry returns the session registry the database writes through.
func (db *DB) Registry() *Registry {
	return db.reg
}

// Close closes the underlying bolt database.  The registry is left open so
// that a caller sharing it between databases decides when the session ends.
func (db *DB) Close() error {
	return convertErr(db.bolt.Close())
}

// SaveDocument stores v encoded as JSON under name.  When merge is true and
// both the stored document and v encode to JSON objects, v is deep-merged into
// the stored document instead of replacing it.
func (db *DB) SaveDocument(name string, v interface{}, merge bool) error {
	if name == "" {
		return ErrDocumentNameRequired
	}

	release, err := db.reg.acquire(name)
	if err != nil {
		return err
	}
	defer release()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", name, err)
	}

	err = db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		key := []byte(name)

		if merge {
			if stored := b.Get(key); stored != nil {
				merged, err := mergeJSON(stored, data)
				if err != nil {
					return err
				}
				data = merged
			}
		}

		return b.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("save document %q: %w", name, convertErr(err))
	}

	log.Tracef("Saved document %q (%d bytes, merge=%v)", name, len(data),
		merge)

	return nil
}

// LoadDocument decodes the document stored under name into v.  The boolean
// result is false when no such document has been saved.
func (db *DB) LoadDocument(name string, v interface{}) (bool, error) {
	if name == "" {
		return false, ErrDocumentNameRequired
	}

	var data []byte
	err := db.bolt.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(documentsBucket).Get([]byte(name))
		if stored == nil {
			return nil
		}

		// Bolt values are only valid for the life of the transaction.
		data = make([]byte, len(stored))
		copy(data, stored)
		return nil
	})
	if err != nil {
		return false, convertErr(err)
	}
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode document %q: %w", name, err)
	}
	return true, nil
}

// DeleteDocument removes the named document.  Removing a document that does
// not exist is not an error.
func (db *DB) DeleteDocument(name string) error {
	if name == "" {
		return ErrDocumentNameRequired
	}

	release, err := db.reg.acquire(name)
	if err != nil {
		return err
	}
	defer release()

	err = db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Delete([]byte(name))
	})
	return convertErr(err)
}
