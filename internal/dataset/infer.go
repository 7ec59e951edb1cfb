package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the explicit type tag assigned to every column at load time.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
	KindUnknown     Kind = "unknown"
)

const (
	// categoryMaxLen is the longest value still treated as a category token.
	categoryMaxLen = 64
	// categoryMaxUnique always qualifies a short-valued column as categorical.
	categoryMaxUnique = 20
)

// inferColumn decides the kind of a column from its normalized cell values
// ("" means missing). For numeric columns the parsed values are returned,
// with NaN in missing positions.
func inferColumn(values []string, opt Options) (Kind, []float64) {
	var (
		nonNil int
		numCnt int
		dtCnt  int
		maxLen int
	)
	cats := make(map[string]int)
	nums := make([]float64, len(values))
	for i, v := range values {
		nums[i] = math.NaN()
		if v == "" {
			continue
		}
		nonNil++
		if x, ok := parseNumeric(v, opt); ok {
			numCnt++
			nums[i] = x
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			dtCnt++
			continue
		}
		if len(cats) <= 10000 { // guard memory
			cats[v]++
		}
		if n := len([]rune(v)); n > maxLen {
			maxLen = n
		}
	}
	switch {
	case nonNil == 0:
		return KindUnknown, nums
	case numCnt == nonNil:
		return KindNumeric, nums
	case dtCnt == nonNil:
		return KindDatetime, nil
	case numCnt+dtCnt == nonNil:
		// mixed numbers and dates carry no usable numeric meaning
		return KindCategorical, nil
	}
	if maxLen <= categoryMaxLen && (len(cats) <= categoryMaxUnique || len(cats)*2 <= nonNil) {
		return KindCategorical, nil
	}
	return KindText, nil
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses s as a number honoring explicit or auto-detected
// decimal and thousands separators. A trailing percent sign is ignored.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	return strictFloat(raw)
}

// strictFloat is strconv.ParseFloat without NaN spellings or hex notation,
// neither of which a spreadsheet writes for a number.
func strictFloat(s string) (float64, bool) {
	t := strings.ToLower(strings.TrimLeft(s, "+-"))
	if t == "nan" || strings.HasPrefix(t, "0x") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// plainNumbers reports whether every non-empty value reads as a number
// without any separator or percent normalization.
func plainNumbers(values []string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := strictFloat(v); !ok {
			return false
		}
	}
	return true
}
