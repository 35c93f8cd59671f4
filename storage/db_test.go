package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Put([]byte("ledger/a"), []byte("100")))

	got, err := db.Get([]byte("ledger/a"))
	require.NoError(t, err)
	require.Equal(t, []byte("100"), got)

	ok, err := db.Has([]byte("ledger/a"))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = db.Get([]byte("ledger/missing"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("42")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'x'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("42"), got)
}
