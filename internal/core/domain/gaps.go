package domain

import "cloud.google.com/go/civil"

// MissingCampaignPeriods returns the yearly slice starts of the request's
// date range that no reconciled campaign starts on, in ascending order.
func MissingCampaignPeriods(s InstanceState) []civil.Date {
	if s.Request == nil {
		return []civil.Date{}
	}
	r := s.Request.DateRange
	have := make(map[civil.Date]struct{}, len(s.Existing.Campaigns))
	for _, c := range s.Existing.Campaigns {
		have[c.Start] = struct{}{}
	}
	return missing(r.Start, (r.Months+11)/12, AddYears, have)
}

// MissingFlightPeriods returns the monthly slice starts of the request's
// date range that no reconciled flight starts on, in ascending order.
func MissingFlightPeriods(s InstanceState) []civil.Date {
	if s.Request == nil {
		return []civil.Date{}
	}
	r := s.Request.DateRange
	have := make(map[civil.Date]struct{}, len(s.Existing.Flights))
	for _, f := range s.Existing.Flights {
		have[f.Start] = struct{}{}
	}
	return missing(r.Start, r.Months, AddMonths, have)
}

// CampaignSlice returns the yearly slice beginning at start, clipped to the
// request's end date. The slice ends where the request's next yearly period
// begins, so consecutive slices stay contiguous across leap days.
func CampaignSlice(r DateRange, start civil.Date) (civil.Date, civil.Date) {
	end := AddYears(start, 1)
	if n, exact := MonthsBetween(r.Start, start); exact && n >= 0 {
		end = AddYears(r.Start, n/12+1)
	}
	return start, MinDate(end, r.End)
}

// FlightSlice returns the monthly slice beginning at start, clipped to the
// campaign's end date. The slice ends where the request's next monthly
// period begins, so a month-end start does not drift to shorter months.
func FlightSlice(r DateRange, c CampaignRecord, start civil.Date) (civil.Date, civil.Date) {
	end := AddMonths(start, 1)
	if n, exact := MonthsBetween(r.Start, start); exact && n >= 0 {
		end = AddMonths(r.Start, n+1)
	}
	return start, MinDate(MinDate(end, c.End), r.End)
}

// IsFlightPeriod reports whether d is one of the request's monthly slice starts.
func IsFlightPeriod(r DateRange, d civil.Date) bool {
	n, exact := MonthsBetween(r.Start, d)
	return exact && n >= 0 && n < r.Months
}

func missing(start civil.Date, n int, step func(civil.Date, int) civil.Date, have map[civil.Date]struct{}) []civil.Date {
	out := make([]civil.Date, 0, n)
	for k := 0; k < n; k++ {
		p := step(start, k)
		if _, ok := have[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
