package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Category is the semantic kind of a forecast record. The declaration order
// is significant: it is the tie-break when sorting records of the same slot.
type Category int

const (
	CategoryAddress Category = iota
	CategoryTime
	CategorySky
	CategoryTemperaturePerHour
	CategoryTemperatureLow
	CategoryTemperatureHigh
	CategoryRainPercentage
	CategoryRainType
	CategoryRainPerHour
	CategoryHumidity
	CategorySnowPerHour
	CategoryWave
	CategoryWindDirection
	CategoryUnknown
)

type categoryInfo struct {
	code  string
	title string
}

var categories = [...]categoryInfo{
	CategoryAddress:            {"ADDRESS", ""},
	CategoryTime:               {"TIME", ""},
	CategorySky:                {"SKY", ""},
	CategoryTemperaturePerHour: {"TMP", "기온"},
	CategoryTemperatureLow:     {"TMN", "최저기온"},
	CategoryTemperatureHigh:    {"TMX", "최고기온"},
	CategoryRainPercentage:     {"POP", "강수확률"},
	CategoryRainType:           {"PTY", ""},
	CategoryRainPerHour:        {"PCP", "시간 당 강수량"},
	CategoryHumidity:           {"REH", "습도"},
	CategorySnowPerHour:        {"SNO", "시간 당 적설량"},
	CategoryWave:               {"WAV", "파고"},
	CategoryWindDirection:      {"VEC", "풍향"},
	CategoryUnknown:            {"UNKNOWN", ""},
}

// wireCodes holds the codes the forecast API can return. Synthetic
// categories are absent: upstream data cannot produce a header.
var wireCodes = map[string]Category{
	"SKY": CategorySky,
	"TMP": CategoryTemperaturePerHour,
	"TMN": CategoryTemperatureLow,
	"TMX": CategoryTemperatureHigh,
	"POP": CategoryRainPercentage,
	"PTY": CategoryRainType,
	"PCP": CategoryRainPerHour,
	"REH": CategoryHumidity,
	"SNO": CategorySnowPerHour,
	"WAV": CategoryWave,
	"VEC": CategoryWindDirection,
}

// Classify maps an upstream category code onto a Category. It is total:
// empty or unrecognised codes yield CategoryUnknown.
func Classify(code string) Category {
	if c, ok := wireCodes[code]; ok {
		return c
	}
	return CategoryUnknown
}

func (c Category) valid() bool {
	return c >= CategoryAddress && c <= CategoryUnknown
}

// Code returns the code name of the category.
func (c Category) Code() string {
	if !c.valid() {
		return categories[CategoryUnknown].code
	}
	return categories[c].code
}

// Title returns the display title. Address, Time, Sky and RainType render
// specially and have no title.
func (c Category) Title() string {
	if !c.valid() {
		return ""
	}
	return categories[c].title
}

// Synthetic reports whether records of this category are display headers.
func (c Category) Synthetic() bool {
	return c == CategoryAddress || c == CategoryTime
}

func (c Category) String() string {
	return c.Code()
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Code()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	s := string(text)
	for i, info := range categories {
		if info.code == s {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("weather: unknown category %q", s)
}

// MarshalJSON adds the category title so renderers need not keep their own table.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		plain
		Title string `json:"title,omitempty"`
	}{plain(r), r.Category.Title()})
}

// SkyLabel describes a SKY value (1 clear, 3 mostly cloudy, 4 overcast).
func SkyLabel(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil {
		return ""
	}
	switch {
	case n < 3:
		return "맑음"
	case n < 4:
		return "구름많음"
	default:
		return "흐림"
	}
}

// RainTypeLabel describes a PTY value. "0" (no precipitation) has no label.
func RainTypeLabel(value string) string {
	switch value {
	case "1":
		return "비"
	case "2":
		return "비/눈"
	case "3":
		return "눈"
	case "4":
		return "소나기"
	default:
		return ""
	}
}

// WindDirectionLabel converts a VEC value in degrees to an 8-point compass label.
func WindDirectionLabel(value string) string {
	deg, err := strconv.Atoi(value)
	if err != nil || deg < 0 || deg > 360 {
		return ""
	}
	switch {
	case deg <= 20:
		return "북"
	case deg <= 69:
		return "북동"
	case deg <= 110:
		return "동"
	case deg <= 159:
		return "남동"
	case deg <= 200:
		return "남"
	case deg <= 249:
		return "남서"
	case deg <= 290:
		return "서"
	case deg <= 339:
		return "북서"
	default:
		return "북"
	}
}
