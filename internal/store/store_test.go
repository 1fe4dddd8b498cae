package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyBeforeFirstSave(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "snapshot.json"))
	_, err := s.Load()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, s.Save([]byte(`{"a":1}`)))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(got))
}

func TestSave_LatestWins(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, s.Save([]byte("first")))
	require.NoError(t, s.Save([]byte("second")))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}
