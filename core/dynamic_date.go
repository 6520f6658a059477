package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDynamicDate resolves a "$date:format:unit:offset" expression against
// baseTime. Expressions without the prefix pass through unchanged.
// Example: "$date:day:day:-1" is yesterday as "2006-01-02".
func ParseDynamicDate(expression string, baseTime time.Time) (string, error) {
	if !strings.HasPrefix(expression, "$date:") {
		return expression, nil
	}

	parts := strings.Split(expression, ":")
	if len(parts) < 4 {
		return "", fmt.Errorf("invalid dynamic date format: %s", expression)
	}

	format := parts[1]
	unit := parts[2]

	offset, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", fmt.Errorf("invalid offset in dynamic date: %s", expression)
	}

	targetTime := baseTime
	switch unit {
	case "day":
		targetTime = targetTime.AddDate(0, 0, offset)
	case "month":
		targetTime = targetTime.AddDate(0, offset, 0)
	case "year":
		targetTime = targetTime.AddDate(offset, 0, 0)
	default:
		return "", fmt.Errorf("unsupported unit in dynamic date: %s", unit)
	}

	return formatTime(targetTime, format), nil
}

// ResolveParams expands any dynamic date expressions in fetch or archive
// parameters.
func ResolveParams(params map[string]string, baseTime time.Time) (map[string]string, error) {
	if len(params) == 0 {
		return params, nil
	}
	resolved := make(map[string]string, len(params))
	for k, v := range params {
		value, err := ParseDynamicDate(v, baseTime)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		resolved[k] = value
	}
	return resolved, nil
}

func formatTime(t time.Time, format string) string {
	switch format {
	case "day":
		return t.Format("2006-01-02")
	case "month":
		return t.Format("2006-01")
	case "year":
		return t.Format("2006")
	case "datetime":
		return t.Format("2006-01-02 15:04:05")
	default:
		return t.Format("2006-01-02")
	}
}
