package dynamic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	timestampName = "google.protobuf.Timestamp"
	durationName  = "google.protobuf.Duration"

	minTimestampSeconds = -62135596800
	maxTimestampSeconds = 253402300799
	maxDurationSeconds  = 315576000000
)

// parseTimestamp parses RFC3339 text into seconds and nanos.
func parseTimestamp(ts string) (int64, int32, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	sec := t.Unix()
	if sec < minTimestampSeconds || sec > maxTimestampSeconds {
		return 0, 0, fmt.Errorf("timestamp out of range")
	}
	return sec, int32(t.Nanosecond()), nil
}

func formatTimestamp(sec int64, nanos int32) string {
	return time.Unix(sec, int64(nanos)).UTC().Format(time.RFC3339Nano)
}

// parseDuration parses the JSON form of a duration ("1.5s", "-0.010s"). Nanos carry
// the sign of the seconds.
func parseDuration(ds string) (int64, int32, error) {
	if !strings.HasSuffix(ds, "s") {
		return 0, 0, fmt.Errorf("invalid duration: missing 's' suffix")
	}
	core := strings.TrimSuffix(ds, "s")
	neg := strings.HasPrefix(core, "-")
	core = strings.TrimLeft(core, "+-")

	secPart, fracPart, _ := strings.Cut(core, ".")
	if secPart == "" {
		secPart = "0"
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid duration seconds: %w", err)
	}
	if len(fracPart) > 9 {
		return 0, 0, fmt.Errorf("invalid duration nanos precision")
	}
	var nanos int64
	if fracPart != "" {
		fracPart += strings.Repeat("0", 9-len(fracPart))
		if nanos, err = strconv.ParseInt(fracPart, 10, 32); err != nil {
			return 0, 0, fmt.Errorf("invalid duration nanos: %w", err)
		}
	}
	if sec > maxDurationSeconds {
		return 0, 0, fmt.Errorf("duration out of range")
	}
	if neg {
		sec, nanos = -sec, -nanos
	}
	return sec, int32(nanos), nil
}

func formatDuration(sec int64, nanos int32) string {
	sign := ""
	if sec < 0 || nanos < 0 {
		sign = "-"
		if sec < 0 {
			sec = -sec
		}
		if nanos < 0 {
			nanos = -nanos
		}
	}
	if nanos == 0 {
		return fmt.Sprintf("%s%ds", sign, sec)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	return fmt.Sprintf("%s%d.%ss", sign, sec, frac)
}
