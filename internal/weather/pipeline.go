package weather

// Transform turns raw forecast records into the current and forecast views
// for ref. It is a pure function of its inputs.
//
// Records with an unknown category or a malformed date/time never reach a
// view builder; neither do records dated ref.Date before the selected slot.
// All of them are counted in Views.Dropped. An input with nothing usable
// left yields an empty-data Failure instead of two empty views.
func Transform(records []Record, ref Reference, address string) (Views, error) {
	if err := ref.Validate(); err != nil {
		return Views{}, err
	}
	if len(records) == 0 {
		return Views{}, EmptyDataFailure()
	}

	usable := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Category == CategoryUnknown || r.Category.Synthetic() || !r.Category.valid() {
			continue
		}
		if len(r.Date) != 8 || !isDigits(r.Date) || !isDigits(r.Time) {
			continue
		}
		usable = append(usable, r)
	}
	if len(usable) == 0 {
		return Views{}, EmptyDataFailure()
	}

	sel := SelectPass(usable, ref)
	views := Views{
		Current:  buildCurrentView(usable, ref, sel, address),
		Forecast: buildForecastView(usable, ref, sel, address),
	}

	placed := countRaw(views.Current) + countRaw(views.Forecast)
	views.Dropped = len(records) - placed
	return views, nil
}

func countRaw(view []Record) int {
	n := 0
	for _, r := range view {
		if !r.Category.Synthetic() {
			n++
		}
	}
	return n
}
