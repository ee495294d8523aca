package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/fieldops/internal/domain"
)

// Wednesday, 12 March 2025.
var wednesday = time.Date(2025, time.March, 12, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return wednesday }

func job(name string, start, end time.Time) domain.Job {
	j := domain.Job{JobID: name, JobName: name, City: "Berlin"}
	j.StartDatetime = domain.NewTimestamp(start)
	j.EndDatetime = domain.NewTimestamp(end)
	return j
}

func TestWeekOfStartsOnMonday(t *testing.T) {
	cases := map[string]time.Time{
		"monday":    time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
		"wednesday": wednesday,
		"sunday":    time.Date(2025, time.March, 16, 23, 59, 0, 0, time.UTC),
	}
	want := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, WeekOf(in).Equal(want), "got %s", WeekOf(in))
		})
	}
}

func TestNavigation(t *testing.T) {
	m := New(WithClock(fixedClock))
	assert.Equal(t, "Mar 10 - Mar 16, 2025", m.RangeLabel())

	m.Next()
	assert.Equal(t, "Mar 17 - Mar 23, 2025", m.RangeLabel())
	m.Prev()
	m.Prev()
	assert.Equal(t, "Mar 3 - Mar 9, 2025", m.RangeLabel())
	m.Today()
	assert.Equal(t, time.Monday, m.Start().Weekday())
	assert.Equal(t, time.Sunday, m.End().Weekday())
	assert.Equal(t, "Mar 10 - Mar 16, 2025", m.RangeLabel())

	days := m.Days()
	require.Len(t, days, 7)
	assert.True(t, m.IsToday(days[2]))
	assert.False(t, m.IsToday(days[3]))
}

func TestJobsOnSortsByStartAndLabels(t *testing.T) {
	m := New(WithClock(fixedClock))
	day := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	late := job("late", day.Add(13*time.Hour), day.Add(17*time.Hour))
	early := job("early", day.Add(7*time.Hour), day.Add(15*time.Hour))
	open := job("open", day.Add(10*time.Hour), time.Time{})
	other := job("other", day.Add(24*time.Hour+9*time.Hour), time.Time{})
	unscheduled := domain.Job{JobID: "none"}
	m.SetJobs([]domain.Job{late, early, open, other, unscheduled})

	entries := m.JobsOn(day)
	require.Len(t, entries, 3)
	assert.Equal(t, "early", entries[0].Name())
	assert.Equal(t, "07:00 - 15:00", entries[0].Label)
	assert.Equal(t, "10:00 - --:--", entries[1].Label)
	assert.Equal(t, "13:00 - 17:00", entries[2].Label)

	assert.Len(t, m.JobsOn(day.AddDate(0, 0, 1)), 1)
	assert.Empty(t, m.JobsOn(day.AddDate(0, 0, 2)))
}

func TestViewRendersWeek(t *testing.T) {
	m := New(WithClock(fixedClock))
	day := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	m.SetJobs([]domain.Job{{JobID: "x", StartDatetime: domain.NewTimestamp(day.Add(9 * time.Hour))}})

	out := m.View(160)
	assert.Contains(t, out, Title)
	assert.Contains(t, out, "Mon 10")
	assert.Contains(t, out, "Sun 16")
	assert.Contains(t, out, "Unnamed Job")
	assert.Contains(t, out, EmptyDay)
	assert.True(t, strings.Contains(out, "09:00 - --:--"))

	narrow := m.View(40)
	assert.Contains(t, narrow, "Wed 12")
}
