// Package statedb provides the market's single-writer transactional state
// store. Every externally-triggered operation runs inside one Update
// transaction: an error return rolls back every state change the operation
// made, so callers observe either full success or full failure.
//
// A call back into the engines issued from inside a transfer hook joins the
// open transaction on the same goroutine, observing state the enclosing
// operation already wrote. This mirrors nested calls on a chain: the inner
// call sees the outer call's effects, and if the outer operation ultimately
// fails both are rolled back together.
//
// The DB is not safe for concurrent operations from multiple goroutines; the
// delivery layer serializes operations, matching the serial execution model
// the settlement logic assumes.
package statedb

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

type DB struct {
	bolt *bbolt.DB
	tx   *Tx // open operation transaction, nil between operations
}

// Tx is a handle to the current operation transaction.
type Tx struct {
	btx      *bbolt.Tx
	onCommit []func()
}

// Open opens or creates the state database at path, creating the parent
// directory and any named buckets.
func Open(path string, buckets ...[]byte) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, xerrors.Errorf("statedb: create directory: %w", err)
	}
	bolt, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("statedb: open: %w", err)
	}
	err = bolt.Update(func(btx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := btx.CreateBucketIfNotExists(name); err != nil {
				return xerrors.Errorf("statedb: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = bolt.Close()
		return nil, err
	}
	return &DB{bolt: bolt}, nil
}

func (d *DB) Close() error { return d.bolt.Close() }

// Update runs fn inside the operation transaction. When a transaction is
// already open this is a nested call: fn runs against the open transaction
// and its error does not abort the enclosing operation unless the caller
// propagates it. Commit hooks registered during the operation fire after the
// top-level transaction commits and are dropped on rollback.
func (d *DB) Update(fn func(tx *Tx) error) error {
	if d.tx != nil {
		return fn(d.tx)
	}
	var hooks []func()
	err := d.bolt.Update(func(btx *bbolt.Tx) error {
		t := &Tx{btx: btx}
		d.tx = t
		defer func() { d.tx = nil }()
		if err := fn(t); err != nil {
			return err
		}
		hooks = t.onCommit
		return nil
	})
	if err != nil {
		return err
	}
	for _, h := range hooks {
		h()
	}
	return nil
}

// View runs fn read-only, joining the open operation transaction if any.
func (d *DB) View(fn func(tx *Tx) error) error {
	if d.tx != nil {
		return fn(d.tx)
	}
	return d.bolt.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// InTx reports whether an operation transaction is currently open.
func (d *DB) InTx() bool { return d.tx != nil }

// OnCommit registers fn to run after the top-level transaction commits.
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// PutJSON stores v under key, creating the bucket when missing.
func (t *Tx) PutJSON(bucket, key []byte, v interface{}) error {
	b, err := t.btx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return xerrors.Errorf("statedb: bucket %q: %w", bucket, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("statedb: marshal: %w", err)
	}
	return b.Put(key, raw)
}

// GetJSON loads the value under key into v. Returns false when the key or
// bucket does not exist.
func (t *Tx) GetJSON(bucket, key []byte, v interface{}) (bool, error) {
	b := t.btx.Bucket(bucket)
	if b == nil {
		return false, nil
	}
	raw := b.Get(key)
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, xerrors.Errorf("statedb: unmarshal: %w", err)
	}
	return true, nil
}

// Delete removes key from bucket. Missing bucket or key is not an error.
func (t *Tx) Delete(bucket, key []byte) error {
	b := t.btx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

// ForEach iterates all key/value pairs of bucket in key order.
func (t *Tx) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	b := t.btx.Bucket(bucket)
	if b == nil {
		return nil
	}
	return b.ForEach(fn)
}

// NextSequence returns a monotonically increasing sequence for bucket.
func (t *Tx) NextSequence(bucket []byte) (uint64, error) {
	b, err := t.btx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return 0, xerrors.Errorf("statedb: bucket %q: %w", bucket, err)
	}
	return b.NextSequence()
}

// SeqKey encodes a sequence number as a sortable 8-byte big-endian key.
func SeqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
