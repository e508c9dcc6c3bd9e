package weather

import (
	"sort"
	"strconv"
)

// Selection is the slot pass chosen for one Transform call. Both views are
// built from the same Selection so they partition the records without overlap.
type Selection struct {
	Time     string `json:"time"`
	Fallback bool   `json:"fallback"`
}

// SelectPass picks the slot used for "now". The primary pass is ref.Time;
// when no record carries it on ref.Date, the slot one hour later is used
// instead to absorb the offset between issuance and registration.
func SelectPass(records []Record, ref Reference) Selection {
	for _, r := range records {
		if r.Date == ref.Date && sameTime(r.Time, ref.Time) {
			return Selection{Time: ref.Time}
		}
	}
	return Selection{Time: addSlotOffset(ref.Time, 100), Fallback: true}
}

// buildCurrentView returns the address header, the Sky record when present,
// then the remaining records of the selected slot in arrival order.
func buildCurrentView(records []Record, ref Reference, sel Selection, address string) []Record {
	selected := make([]Record, 0, len(records))
	skyIndex := -1
	for _, r := range records {
		if r.Date != ref.Date || !sameTime(r.Time, sel.Time) {
			continue
		}
		if skyIndex < 0 && r.Category == CategorySky {
			skyIndex = len(selected)
		}
		selected = append(selected, r)
	}

	view := make([]Record, 0, len(selected)+1)
	view = append(view, Record{
		Date:     FormatDate(ref.Date),
		Time:     FormatTime(sel.Time),
		Category: CategoryAddress,
		Value:    address,
	})
	if skyIndex >= 0 {
		view = append(view, selected[skyIndex])
	}
	for i, r := range selected {
		if i != skyIndex {
			view = append(view, r)
		}
	}
	return view
}

// buildForecastView returns every record after the selected slot, sorted and
// grouped per forecast time. The first group is introduced by an address
// header, every following group by a time header.
func buildForecastView(records []Record, ref Reference, sel Selection, address string) []Record {
	cutoff := atoi(sel.Time)
	later := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Date != ref.Date || atoi(r.Time) > cutoff {
			later = append(later, r)
		}
	}

	sort.SliceStable(later, func(i, j int) bool {
		a, b := later[i], later[j]
		if da, db := atoi(a.Date), atoi(b.Date); da != db {
			return da < db
		}
		if ta, tb := atoi(a.Time), atoi(b.Time); ta != tb {
			return ta < tb
		}
		return a.Category < b.Category
	})

	view := make([]Record, 0, len(later)+len(later)/4+1)
	var groupDate, groupTime string
	for i, r := range later {
		switch {
		case i == 0:
			view = append(view, Record{
				Date:     FormatDate(r.Date),
				Time:     FormatTime(r.Time),
				Category: CategoryAddress,
				Value:    address,
			})
		case r.Date != groupDate || !sameTime(r.Time, groupTime):
			view = append(view, Record{
				Date:     FormatDate(r.Date),
				Time:     FormatTime(r.Time),
				Category: CategoryTime,
			})
		}
		view = append(view, r)
		groupDate, groupTime = r.Date, r.Time
	}
	return view
}

func sameTime(a, b string) bool {
	return atoi(a) == atoi(b)
}

// atoi parses a numeric date or time label. Callers only pass values that
// passed validation, so the error is not interesting here.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
