// Package timefmt renders elapsed seconds for the recorder counter.
package timefmt

import (
	"math"
	"strconv"
	"strings"
)

// units are the divisors producing the tens-of-minutes, minutes, tens-of-seconds
// and seconds digits, most significant first.
var units = []int64{600, 60, 10, 1}

// maxSeconds keeps the float to int conversion exact.
const maxSeconds = 1 << 53

// Format renders seconds as "MM:SS". Fractions are floored and minutes never
// roll over into hours, so 3661 renders as "61:01". Negative and non-finite
// values render as "00:00".
func Format(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}

	remaining := int64(math.Floor(seconds))

	var label strings.Builder
	for _, unit := range units {
		digit := remaining / unit
		remaining -= digit * unit
		label.WriteString(strconv.FormatInt(digit, 10))
	}

	return group(label.String())
}

// group separates the label into two-character blocks counted from the right.
func group(label string) string {
	var b strings.Builder
	b.Grow(len(label) + len(label)/2)
	for i := 0; i < len(label); i++ {
		if i > 0 && (len(label)-i)%2 == 0 {
			b.WriteByte(':')
		}
		b.WriteByte(label[i])
	}
	return b.String()
}
