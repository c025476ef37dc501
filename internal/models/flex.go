package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FlexString handles JSON fields that can be either string or number
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt handles JSON fields that can be either string or number
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" || string(data) == `""` {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// FlexTime accepts epoch milliseconds (number or numeric string) or an
// ISO-8601 timestamp. null is the Unix epoch, matching how the page's
// Date(null) reads it; "" decodes to the zero time, as does a missing key.
type FlexTime time.Time

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FlexTime(time.UnixMilli(0).UTC())
		return nil
	}
	if len(data) == 0 || string(data) == `""` {
		*f = FlexTime(time.Time{})
		return nil
	}
	if data[0] != '"' {
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("parsing timestamp: %w", err)
		}
		*f = FlexTime(time.UnixMilli(int64(ms)).UTC())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexTime(time.UnixMilli(ms).UTC())
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = FlexTime(t)
			return nil
		}
	}
	return fmt.Errorf("unable to parse timestamp: %q", s)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// FlexDuration accepts milliseconds (number or numeric string) or an ISO-8601
// duration such as "PT1H2M3.5S". Months count as 30 days and years as 365.
type FlexDuration time.Duration

func (f *FlexDuration) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" || string(data) == `""` {
		*f = 0
		return nil
	}
	if data[0] != '"' {
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("parsing duration: %w", err)
		}
		*f = FlexDuration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexDuration(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	d, err := ParseISODuration(s)
	if err != nil {
		return err
	}
	*f = FlexDuration(d)
	return nil
}

var isoDurationRe = regexp.MustCompile(`^([-+])?P(?:([\d.,]+)Y)?(?:([\d.,]+)M)?(?:([\d.,]+)W)?(?:([\d.,]+)D)?(?:T(?:([-+]?[\d.,]+)H)?(?:([-+]?[\d.,]+)M)?(?:([-+]?[\d.,]+)S)?)?$`)

var isoDurationUnits = []time.Duration{
	365 * 24 * time.Hour,
	30 * 24 * time.Hour,
	7 * 24 * time.Hour,
	24 * time.Hour,
	time.Hour,
	time.Minute,
	time.Second,
}

// ParseISODuration parses an ISO-8601 duration. Java's Duration.toString
// output, including negative components like "PT-0.5S", is accepted.
func ParseISODuration(s string) (time.Duration, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	m := isoDurationRe.FindStringSubmatch(u)
	if m == nil || strings.HasSuffix(u, "T") {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
	}

	var total float64
	seen := false
	for i, unit := range isoDurationUnits {
		field := m[i+2]
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(field, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
		}
		total += v * float64(unit)
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
	}
	if m[1] == "-" {
		total = -total
	}
	if math.Abs(total) > math.MaxInt64 {
		return 0, fmt.Errorf("ISO-8601 duration out of range: %q", s)
	}
	return time.Duration(total), nil
}
