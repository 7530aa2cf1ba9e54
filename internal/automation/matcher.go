package automation

import (
	"strconv"
	"strings"

	"homehub/internal/models"
)

// Matches reports whether any instance of any component in cv satisfies the
// condition expression. A plain expression means equality; for NUMBER
// components a ">=", "<=", ">" or "<" prefix overrides it. Values that fail
// to parse never match.
func Matches(cv models.CurrentValue, expr string) bool {
	for _, comp := range cv.Components {
		for _, inst := range comp.Instances {
			if matchInstance(inst.Value, expr, comp.Datatype) {
				return true
			}
		}
	}
	return false
}

func matchInstance(value, expr string, datatype models.Datatype) bool {
	switch datatype {
	case models.DatatypeNumber:
		return matchNumber(value, expr)
	case models.DatatypeBoolean:
		return strings.EqualFold(value, expr)
	default:
		return value == expr
	}
}

func matchNumber(value, expr string) bool {
	op, operand := splitOperator(expr)
	actual, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}
	expected, err := strconv.ParseFloat(operand, 64)
	if err != nil {
		return false
	}
	switch op {
	case ">=":
		return actual >= expected
	case "<=":
		return actual <= expected
	case ">":
		return actual > expected
	case "<":
		return actual < expected
	default:
		return actual == expected
	}
}

// splitOperator strips a leading comparison operator from a condition
// expression. Two-character operators are checked first so ">=" is not read
// as ">" followed by "=5".
func splitOperator(expr string) (op, operand string) {
	expr = strings.TrimSpace(expr)
	for _, candidate := range []string{">=", "<=", ">", "<"} {
		if strings.HasPrefix(expr, candidate) {
			return candidate, strings.TrimSpace(expr[len(candidate):])
		}
	}
	return "", expr
}
