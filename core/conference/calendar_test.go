package conference_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/conference"
)

var calendarFrom = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestEndDate(t *testing.T) {
	tests := []struct {
		date   string
		want   time.Time
		wantOk bool
	}{
		{date: "12–14 мая 2025", want: time.Date(2025, time.May, 14, 0, 0, 0, 0, time.UTC), wantOk: true},
		{date: "3-5 Апреля 2025", want: time.Date(2025, time.April, 5, 0, 0, 0, 0, time.UTC), wantOk: true},
		{date: "Астана, 28 — 30 декабря 2024", want: time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC), wantOk: true},
		{date: "1 мая"},
		{date: "12-14 mayo 2025"},
		{date: ""},
	}
	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			got, ok := conference.EndDate(tc.date)
			assert.Equal(t, tc.wantOk, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConference_IsUpcoming(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{name: "in window", date: "12–14 апреля 2025", want: true},
		{name: "ends today", date: "8–10 марта 2025", want: true},
		{name: "ends on window edge", date: "6–8 июня 2025", want: true},
		{name: "past window", date: "1–3 сентября 2025", want: false},
		{name: "already passed", date: "1–3 февраля 2025", want: false},
		{name: "ended yesterday", date: "7–9 марта 2025", want: false},
		{name: "unparseable", date: "1 мая", want: true},
		{name: "unknown month", date: "12–14 mayo 2025", want: true},
		{name: "empty", date: "", want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := conference.Conference{Date: core.Localized{RU: tc.date}}
			assert.Equal(t, tc.want, c.IsUpcoming(calendarFrom))
		})
	}
}

func TestService_QueryUpcoming(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	restore := conference.SetClock(func() time.Time { return calendarFrom })
	defer restore()

	create := func(name, date string) {
		nc := newConference(name, "GA")
		nc.Date = core.Localized{RU: date, EN: "TBA"}
		conf, err := e.svc.Create(ctx, e.founder, nc)
		require.NoError(t, err)
		require.Equal(t, conference.StatusPublished, conf.Status)
	}
	create("April", "12–14 апреля 2025")
	create("September", "1–3 сентября 2025")
	create("February", "1–3 февраля 2025")
	create("Someday", "весной")

	nc := newConference("Pending", "GA")
	nc.Date = core.Localized{RU: "12–14 апреля 2025"}
	pending, err := e.svc.Create(ctx, e.gs, nc)
	require.NoError(t, err)
	require.Equal(t, conference.StatusPending, pending.Status)

	upcoming, err := e.svc.QueryUpcoming(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range upcoming {
		names = append(names, c.Name.EN)
	}
	assert.ElementsMatch(t, []string{"April", "Someday"}, names)
	for i := 1; i < len(upcoming); i++ {
		assert.False(t, upcoming[i].CreatedAt.After(upcoming[i-1].CreatedAt), "newest first")
	}
}
