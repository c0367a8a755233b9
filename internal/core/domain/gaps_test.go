package domain

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeMonth(m int) time.Month { return time.Month(m) }

func stateFor(start civil.Date, months int) InstanceState {
	return InstanceState{Request: &CampaignRequest{DateRange: DateRange{
		Start:  start,
		End:    AddMonths(start, months),
		Months: months,
	}}}
}

func TestFourteenMonthRequest(t *testing.T) {
	s := stateFor(d(2024, 1, 1), 14)

	assert.Equal(t, []civil.Date{d(2024, 1, 1), d(2025, 1, 1)}, MissingCampaignPeriods(s))

	flights := MissingFlightPeriods(s)
	require.Len(t, flights, 14)
	assert.Equal(t, d(2024, 1, 1), flights[0])
	assert.Equal(t, d(2025, 2, 1), flights[13])
}

func TestThirteenMonthsSpansTwoYears(t *testing.T) {
	s := stateFor(d(2024, 2, 29), 13)
	assert.Len(t, MissingCampaignPeriods(s), 2)
	assert.Len(t, MissingFlightPeriods(s), 13)
}

func TestFlightGapClosure(t *testing.T) {
	for _, months := range []int{1, 6, 12, 14, 25} {
		s := stateFor(d(2024, 1, 31), months)
		gaps := MissingFlightPeriods(s)
		require.Len(t, gaps, months)

		for _, start := range gaps {
			s.Existing.Flights = append(s.Existing.Flights, FlightRecord{Start: start})
		}
		assert.Empty(t, MissingFlightPeriods(s), "months=%d", months)
	}
}

func TestCampaignGapsIgnoreForeignStarts(t *testing.T) {
	s := stateFor(d(2024, 1, 1), 14)
	s.Existing.Campaigns = []CampaignRecord{
		{Start: d(2024, 1, 1)},
		{Start: d(2024, 6, 1)},
	}
	assert.Equal(t, []civil.Date{d(2025, 1, 1)}, MissingCampaignPeriods(s))
}

func TestSlicesAreClipped(t *testing.T) {
	r := stateFor(d(2024, 1, 1), 14).Request.DateRange

	start, end := CampaignSlice(r, d(2025, 1, 1))
	assert.Equal(t, d(2025, 1, 1), start)
	assert.Equal(t, d(2025, 3, 1), end)

	c := CampaignRecord{Start: d(2024, 1, 15), End: d(2024, 3, 1)}
	_, end = FlightSlice(r, c, d(2024, 2, 15))
	assert.Equal(t, d(2024, 3, 1), end)
}

func TestMonthEndSlicesAreContiguous(t *testing.T) {
	r := stateFor(d(2024, 1, 31), 3).Request.DateRange
	c := CampaignRecord{Start: r.Start, End: r.End}

	var got [][2]civil.Date
	for _, p := range MissingFlightPeriods(stateFor(r.Start, 3)) {
		start, end := FlightSlice(r, c, p)
		got = append(got, [2]civil.Date{start, end})
	}
	assert.Equal(t, [][2]civil.Date{
		{d(2024, 1, 31), d(2024, 2, 29)},
		{d(2024, 2, 29), d(2024, 3, 31)},
		{d(2024, 3, 31), d(2024, 4, 30)},
	}, got)
}

func TestLeapDayCampaignSlicesAreContiguous(t *testing.T) {
	s := stateFor(d(2024, 2, 29), 60)
	r := s.Request.DateRange

	prev := r.Start
	for _, p := range MissingCampaignPeriods(s) {
		start, end := CampaignSlice(r, p)
		assert.Equal(t, prev, start)
		prev = end
	}
	assert.Equal(t, r.End, prev)
	assert.Equal(t, d(2029, 2, 28), prev)

	_, end := CampaignSlice(r, d(2027, 2, 28))
	assert.Equal(t, d(2028, 2, 29), end)
}

func TestIsFlightPeriod(t *testing.T) {
	r := stateFor(d(2024, 1, 31), 3).Request.DateRange
	assert.True(t, IsFlightPeriod(r, d(2024, 2, 29)))
	assert.True(t, IsFlightPeriod(r, d(2024, 3, 31)))
	assert.False(t, IsFlightPeriod(r, d(2024, 4, 30)))
	assert.False(t, IsFlightPeriod(r, d(2024, 2, 15)))
}

func TestNoRequestHasNoGaps(t *testing.T) {
	assert.Empty(t, MissingCampaignPeriods(InstanceState{}))
	assert.Empty(t, MissingFlightPeriods(InstanceState{}))
}

func TestLeaseActive(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var none *Lease
	assert.False(t, none.Active(now))
	assert.False(t, (&Lease{Expires: now}).Active(now))
	assert.True(t, (&Lease{Expires: now.Add(time.Second)}).Active(now))
}
