package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampAcceptsBackendForms(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-10T08:30:00Z":        time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
		"2025-03-10T08:30:00.123Z":    time.Date(2025, 3, 10, 8, 30, 0, 123000000, time.UTC),
		"2025-03-10T08:30:00":         time.Date(2025, 3, 10, 8, 30, 0, 0, time.Local),
		"2025-03-10T08:30:00.250000":  time.Date(2025, 3, 10, 8, 30, 0, 250000000, time.Local),
		"2025-03-10 08:30:00":         time.Date(2025, 3, 10, 8, 30, 0, 0, time.Local),
		"2025-03-10T10:30:00+02:00":   time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input)
		require.NoError(t, err, input)
		assert.True(t, got.Equal(want), "%s: got %s want %s", input, got, want)
	}

	_, err := ParseTimestamp("next tuesday")
	assert.Error(t, err)
}

func TestTimestampJSONRoundTripsAsUTCMillis(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	data, err := json.Marshal(JobCreate{StartDatetime: NewTimestamp(start)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start_datetime":"2025-03-10T08:30:00.000Z"`)
	assert.NotContains(t, string(data), "end_datetime")
}

func TestJobDecodesNullAndNaiveTimestamps(t *testing.T) {
	raw := `{"job_id":"j1","latitude":52.5,"longitude":13.4,"start_datetime":"2025-03-10T08:30:00","end_datetime":null,
		"roles":[],"workers":[],"item_links":[{"item_id":"i1","required_quantity":3,"item":{"item_id":"i1","item_name":"Drill"}}]}`
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))

	start, ok := job.Start()
	require.True(t, ok)
	assert.Equal(t, 8, start.Hour())
	_, ok = job.End()
	assert.False(t, ok)
	assert.Equal(t, 3, job.ItemLinks[0].Quantity())
	assert.True(t, job.HasLocation())
}

func TestJobItemLinkQuantityDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, JobItemLink{ItemID: "i"}.Quantity())
	assert.Equal(t, 1, JobItemLink{ItemID: "i", RequiredQuantity: -4}.Quantity())
}

func TestJobCreateValidate(t *testing.T) {
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	valid := JobCreate{
		Latitude:      52.52,
		Longitude:     13.40,
		StartDatetime: NewTimestamp(start),
		RoleIDs:       []string{"r1"},
		Items:         []JobItemRequest{{ItemID: "i1", RequiredQuantity: 2}},
	}
	valid.Normalize()
	require.NoError(t, valid.Validate())

	badQty := valid
	badQty.Items = []JobItemRequest{{ItemID: "i1", RequiredQuantity: 0}}
	assert.Error(t, badQty.Validate())

	badLat := valid
	badLat.Latitude = 123
	assert.Error(t, badLat.Validate())

	reversed := valid
	reversed.EndDatetime = NewTimestamp(start.Add(-time.Hour))
	assert.Error(t, reversed.Validate())
	assert.NoError(t, reversed.CheckShape())
	assert.Error(t, badLat.CheckShape())
}

func TestNormalizeEncodesEmptyWorkerList(t *testing.T) {
	var p JobCreate
	p.Normalize()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"worker_ids":[]`)
}

func TestWorkerDisplayFallbacks(t *testing.T) {
	w := Worker{}
	assert.Equal(t, "N/A", w.DisplayName())
	assert.Equal(t, "N/A", w.Phone())
	assert.Equal(t, "No branch", w.BranchName())

	w = Worker{FirstName: "Alice", LastName: " Johnson ", Branch: &Branch{BranchName: "Berlin Central Warehouse"}}
	assert.Equal(t, "Alice Johnson", w.DisplayName())
	assert.Equal(t, "Berlin Central Warehouse", w.BranchName())
}

func TestReferencePayloadsRequireName(t *testing.T) {
	assert.Error(t, RoleCreate{RoleName: "  "}.Validate())
	assert.NoError(t, RoleCreate{RoleName: "Rigger"}.Validate())
	assert.Error(t, ItemCreate{}.Validate())
	assert.NoError(t, ItemCreate{ItemName: "Ladder"}.Validate())
}
