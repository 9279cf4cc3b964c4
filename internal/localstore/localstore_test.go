package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/healthassist-go/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "local.db"))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)

	s.Set("k", "v1")
	s.Set("k", "v2")
	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v2", v)

	s.Delete("k")
	_, err = s.Get("k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	first := Open(path)
	first.Set("k", "v")
	require.NoError(t, first.Close())

	second := Open(path)
	t.Cleanup(func() { second.Close() })
	v, err := second.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestMemoryOnly(t *testing.T) {
	s := Open("")
	s.Set("k", "v")
	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestCorruptJSONIsDropped(t *testing.T) {
	s := newTestStore(t)
	s.Set(KeyUser, "{not json")

	var u models.User
	require.ErrorIs(t, s.GetJSON(KeyUser, &u), ErrNotFound)
	_, err := s.Get(KeyUser)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInsurancePlan(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.InsurancePlan()
	require.False(t, ok)

	require.NoError(t, s.SetInsurancePlan(models.InsurancePlan{Carrier: "Aetna", PlanName: "Gold"}))
	plan, ok := s.InsurancePlan()
	require.True(t, ok)
	require.Equal(t, "Aetna — Gold", plan.Label())

	require.NoError(t, s.SetInsurancePlan(models.InsurancePlan{}))
	_, ok = s.InsurancePlan()
	require.False(t, ok)
}

func TestGetFallsBackToMemoryWhenWriteFailed(t *testing.T) {
	s := newTestStore(t)
	db := s.sqlite()
	require.NotNil(t, db)
	_, err := db.Exec(`CREATE TRIGGER kv_reject BEFORE INSERT ON kv BEGIN SELECT RAISE(ABORT, 'disk full'); END;`)
	require.NoError(t, err)

	s.Set("k", "v")

	v, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	s.Delete("k")
	_, err = s.Get("k")
	require.ErrorIs(t, err, ErrNotFound)
}
