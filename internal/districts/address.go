package districts

import (
	"strings"

	"github.com/i474232898/short-term-forecast/internal/common"
)

const sejong = "세종특별자치시"

// Cities split into gu; their table keys carry three tokens.
var multiGuCities = []string{
	"수원시", "성남시", "안양시", "안산시", "고양시", "용인시",
	"청주시", "천안시", "전주시", "포항시", "창원시",
}

// Provinces renamed after the table was compiled.
var provinceAliases = map[string]string{
	"강원특별자치도": "강원도",
	"전북특별자치도": "전라북도",
}

// NormalizeAddress reduces a free-form Korean address such as
// "대한민국 경기도 수원시 팔달구 인계동" to its table key "경기도 수원시 팔달구".
// It returns "" when the address is too short to name a district.
func NormalizeAddress(address string) string {
	tokens := strings.Fields(address)
	if len(tokens) > 0 && common.HasAny(tokens[0], "대한민국", "한국", "Korea") {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return ""
	}
	if alias, ok := provinceAliases[tokens[0]]; ok {
		tokens[0] = alias
	}

	if tokens[0] == sejong {
		return sejong + " " + sejong
	}
	if len(tokens) < 2 {
		return ""
	}
	if tokens[0] == "충청남도" && tokens[1] == "연기군" {
		return sejong + " " + sejong
	}
	if common.OneOf(tokens[1], multiGuCities...) && len(tokens) >= 3 {
		return strings.Join(tokens[:3], " ")
	}
	return strings.Join(tokens[:2], " ")
}
