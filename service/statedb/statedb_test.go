package statedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"), []byte("things"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpdateRollsBackOnError(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	boom := xerrors.New("boom")
	err := db.Update(func(tx *Tx) error {
		req.NoError(tx.PutJSON([]byte("things"), []byte("k"), "v"))
		return boom
	})
	req.ErrorIs(err, boom)

	var got string
	err = db.View(func(tx *Tx) error {
		ok, err := tx.GetJSON([]byte("things"), []byte("k"), &got)
		req.NoError(err)
		req.False(ok)
		return nil
	})
	req.NoError(err)
}

func TestNestedUpdateJoinsOpenTransaction(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	err := db.Update(func(tx *Tx) error {
		req.NoError(tx.PutJSON([]byte("things"), []byte("k"), "outer"))

		// nested call observes the outer write and its own failure does not
		// abort the outer operation
		inner := db.Update(func(itx *Tx) error {
			var got string
			ok, err := itx.GetJSON([]byte("things"), []byte("k"), &got)
			req.NoError(err)
			req.True(ok)
			req.Equal("outer", got)
			return xerrors.New("inner failed")
		})
		req.Error(inner)
		return nil
	})
	req.NoError(err)

	var got string
	req.NoError(db.View(func(tx *Tx) error {
		ok, err := tx.GetJSON([]byte("things"), []byte("k"), &got)
		req.NoError(err)
		req.True(ok)
		return nil
	}))
	req.Equal("outer", got)
}

func TestNestedWritesRollBackWithOuter(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	err := db.Update(func(tx *Tx) error {
		req.NoError(db.Update(func(itx *Tx) error {
			return itx.PutJSON([]byte("things"), []byte("inner"), 1)
		}))
		return xerrors.New("outer failed")
	})
	req.Error(err)

	var got int
	req.NoError(db.View(func(tx *Tx) error {
		ok, err := tx.GetJSON([]byte("things"), []byte("inner"), &got)
		req.NoError(err)
		req.False(ok)
		return nil
	}))
}

func TestOnCommitHooks(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	fired := 0
	err := db.Update(func(tx *Tx) error {
		tx.OnCommit(func() { fired++ })
		return xerrors.New("rolled back")
	})
	req.Error(err)
	req.Zero(fired)

	err = db.Update(func(tx *Tx) error {
		tx.OnCommit(func() { fired++ })
		tx.OnCommit(func() { fired++ })
		return nil
	})
	req.NoError(err)
	req.Equal(2, fired)
}

func TestSequencesAndIteration(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	req.NoError(db.Update(func(tx *Tx) error {
		for i := 0; i < 3; i++ {
			seq, err := tx.NextSequence([]byte("things"))
			req.NoError(err)
			req.NoError(tx.PutJSON([]byte("things"), SeqKey(seq), int(seq)))
		}
		return nil
	}))

	var seen []int
	req.NoError(db.View(func(tx *Tx) error {
		return tx.ForEach([]byte("things"), func(k, v []byte) error {
			seen = append(seen, len(seen)+1)
			return nil
		})
	}))
	req.Equal([]int{1, 2, 3}, seen)
}
