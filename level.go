package funnel

import "strings"

// Level is an ordered severity. Higher values are more severe.
type Level int64

// Severity constants. The numeric ladder matches the conventional
// 10..50 spacing so numeric levels in configuration files keep working.
const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarn     Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// ParseLevel converts a level name to its numeric constant.
// Accepts both "WARN" and "WARNING" spellings, case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	default:
		return 0, fmtErrorf("invalid level: '%s' (use DEBUG, INFO, WARNING, ERROR, CRITICAL)", s)
	}
}

// String returns the canonical name used by the %(levelname)s template key.
func (l Level) String() string {
	switch {
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARNING"
	case l <= LevelError:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}
