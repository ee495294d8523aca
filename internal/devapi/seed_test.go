package devapi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	seed, err := DefaultSeed()
	require.NoError(t, err)
	store := NewStore()
	require.NoError(t, store.Apply(seed, now))
	return store
}

func TestDefaultSeedLoadsDemoData(t *testing.T) {
	store := seededStore(t, time.Date(2025, 3, 10, 8, 30, 0, 0, time.Local))

	assert.Equal(t, map[string]int{
		"branches": 3,
		"roles":    6,
		"items":    6,
		"workers":  20,
		"jobs":     20,
	}, store.Counts())

	workers := store.ListWorkers()
	alice := workers[0]
	assert.Equal(t, "Alice Johnson", alice.DisplayName())
	assert.Equal(t, "+49 30 12345678", alice.Phone())
	assert.Equal(t, "Berlin Central Warehouse", alice.BranchName())
	assert.Equal(t, []string{"Electrician", "General Laborer"}, alice.RoleNames())
}

func TestDefaultSeedSumsStockAcrossBranches(t *testing.T) {
	store := seededStore(t, time.Now())
	totals := map[string]int{}
	for _, item := range store.ListItems() {
		require.NotNil(t, item.TotalStock)
		totals[item.ItemName] = *item.TotalStock
	}
	assert.Equal(t, 35, totals["Safety Equipment Pack"])
	assert.Equal(t, 21, totals["Power Drill"])
	assert.Equal(t, 8, totals["HVAC Diagnostic Tools"])
}

func TestDefaultSeedSchedulesRelativeToLoadTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.Local)
	store := seededStore(t, now)
	first := store.ListJobs()[0]

	start, ok := first.Start()
	require.True(t, ok)
	end, ok := first.End()
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2025, 3, 11, 7, 0, 0, 0, time.Local)), "start = %s", start)
	assert.Equal(t, 8*time.Hour, end.Sub(start))
	assert.Equal(t, "Germany", first.Country)
	assert.Equal(t, []string{"Alice Johnson"}, first.WorkerNames())
	require.Len(t, first.ItemLinks, 2)
	assert.Equal(t, "Safety Equipment Pack", first.ItemLinks[0].Item.ItemName)
	assert.Equal(t, 2, first.ItemLinks[1].RequiredQuantity)
}

func TestLoadSeedReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	content := `
country = "Germany"

[[branches]]
key = "depot"
name = "Depot"
latitude = 52.5
longitude = 13.4

[[roles]]
key = "driver"
name = "Driver"

[[items]]
key = "van"
name = "Van"
branch = "depot"
stock = { depot = 3 }

[[workers]]
key = "kim"
first_name = "Kim"
branch = "depot"
roles = ["driver"]

[[jobs]]
name = "Delivery"
latitude = 52.5
longitude = 13.4
day_offset = 1
hour = 9
duration = "2h"
roles = ["driver"]
workers = ["kim"]
items = [{ item = "van", quantity = 1 }]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	store := NewStore()
	require.NoError(t, store.Apply(seed, time.Now()))

	jobs := store.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"Driver"}, jobs[0].RoleNames())
	assert.Equal(t, []string{"Kim"}, jobs[0].WorkerNames())
	assert.Equal(t, 3, *store.ListItems()[0].TotalStock)
}

func TestLoadSeedRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.ini")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := LoadSeed(path)
	assert.Error(t, err)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	store := seededStore(t, time.Now())
	before := store.Counts()

	broken := Seed{
		Roles:   []SeedRole{{Key: "r", Name: "Role"}},
		Workers: []SeedWorker{{Key: "w", FirstName: "Ann", Roles: []string{"missing"}}},
	}
	err := store.Apply(broken, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "missing"`)
	assert.Equal(t, before, store.Counts())
}
