package weather

import (
	"fmt"
	"strconv"
	"time"
)

// KST is the zone the forecast API publishes in.
var KST = time.FixedZone("KST", 9*60*60)

// slotByHour maps each hour of the day to the latest issuance at or before it.
// Issuances happen at 02, 05, 08, 11, 14, 17, 20 and 23 local time.
var slotByHour = [24]string{
	"2300", "2300", // 00, 01 belong to the previous day's 23:00 issuance
	"0200", "0200", "0200",
	"0500", "0500", "0500",
	"0800", "0800", "0800",
	"1100", "1100", "1100",
	"1400", "1400", "1400",
	"1700", "1700", "1700",
	"2000", "2000", "2000",
	"2300",
}

// ResolveSlot returns the issuance slot label covering hour.
func ResolveSlot(hour int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: %d", ErrInvalidHour, hour)
	}
	return slotByHour[hour], nil
}

// BaseDateTime returns the reference a query issued at t should anchor to.
// Hours 00 and 01 fall under the 23:00 issuance of the previous day.
func BaseDateTime(t time.Time) (Reference, error) {
	local := t.In(KST)
	slot, err := ResolveSlot(local.Hour())
	if err != nil {
		return Reference{}, err
	}
	if local.Hour() < 2 {
		local = local.AddDate(0, 0, -1)
	}
	return Reference{Date: local.Format("20060102"), Time: slot}, nil
}

// Validate checks that the reference carries an 8-digit date and a 4-digit time.
func (r Reference) Validate() error {
	if len(r.Date) != 8 || !isDigits(r.Date) {
		return fmt.Errorf("%w: date %q", ErrInvalidReference, r.Date)
	}
	if len(r.Time) != 4 || !isDigits(r.Time) {
		return fmt.Errorf("%w: time %q", ErrInvalidReference, r.Time)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// FormatDate renders YYYYMMDD as "YYYY년 MM월 DD일". Malformed input is returned unchanged.
func FormatDate(date string) string {
	if len(date) != 8 || !isDigits(date) {
		return date
	}
	return fmt.Sprintf("%s년 %s월 %s일", date[:4], date[4:6], date[6:])
}

// FormatTime renders HHmm as "HH시 기준". Malformed input is returned unchanged.
func FormatTime(hhmm string) string {
	if len(hhmm) != 4 || !isDigits(hhmm) {
		return hhmm
	}
	return hhmm[:2] + "시 기준"
}

// addSlotOffset adds n to a HHmm label as an integer, keeping 4 digits.
func addSlotOffset(hhmm string, n int) string {
	v, _ := strconv.Atoi(hhmm)
	return fmt.Sprintf("%04d", v+n)
}
