package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/pkg/tolerance"
)

// Subject is one thing a rule is evaluated against: the whole project or a
// single floor.
type Subject struct {
	Key   string // "project" or the floor id
	Label string

	Counts       aggregate.Counts
	PassRate     float64
	MaxDeviation float64
}

// Scopes.
const (
	ScopeProject = "project"
	ScopeFloor   = "floor"
)

// Status returns the worst status present in s, or "" when s has no windows.
func (s Subject) Status() tolerance.Status {
	switch {
	case s.Counts.Fail > 0:
		return tolerance.StatusFail
	case s.Counts.Warning > 0:
		return tolerance.StatusWarning
	case s.Counts.Pass > 0:
		return tolerance.StatusPass
	default:
		return ""
	}
}

// evalCondition evaluates a rule condition string against a Subject.
//
// Supported expressions (field operator value):
//
//	pass_rate < 90
//	fail_count > 0
//	warning_count >= 3
//	pass_count < 10
//	total > 0
//	max_deviation > 5
//	status == fail
//	status == warning
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, s Subject) (bool, float64) {
	field, op, rhs, err := parseCondition(cond)
	if err != nil {
		return false, 0
	}

	if field == "status" {
		return string(s.Status()) == rhs, float64(s.Counts.Of(tolerance.Status(rhs)))
	}

	// Rates and deviations are undefined for a subject without windows.
	if s.Counts.Total == 0 && (field == "pass_rate" || field == "max_deviation") {
		return false, 0
	}

	v, _ := numericField(field, s)
	threshold, _ := strconv.ParseFloat(rhs, 64)
	return compareFloat(v, op, threshold), v
}

// checkCondition reports why cond can never fire, or nil if it is well formed.
func checkCondition(cond string) error {
	_, _, _, err := parseCondition(cond)
	return err
}

func parseCondition(cond string) (field, op, rhs string, err error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	field, op, rhs = parts[0], parts[1], parts[2]

	if field == "status" {
		if op != "==" {
			return "", "", "", fmt.Errorf("condition %q: status only supports ==", cond)
		}
		if !tolerance.Status(rhs).Valid() {
			return "", "", "", fmt.Errorf("condition %q: unknown status %q", cond, rhs)
		}
		return field, op, rhs, nil
	}

	if _, ok := numericField(field, Subject{}); !ok {
		return "", "", "", fmt.Errorf("condition %q: unknown field %q", cond, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return "", "", "", fmt.Errorf("condition %q: unknown operator %q", cond, op)
	}
	if _, perr := strconv.ParseFloat(rhs, 64); perr != nil {
		return "", "", "", fmt.Errorf("condition %q: threshold: %w", cond, perr)
	}
	return field, op, rhs, nil
}

// numericField maps a field name to its value in the subject.
func numericField(field string, s Subject) (float64, bool) {
	switch field {
	case "pass_rate":
		return s.PassRate, true
	case "max_deviation":
		return s.MaxDeviation, true
	case "fail_count":
		return float64(s.Counts.Fail), true
	case "warning_count":
		return float64(s.Counts.Warning), true
	case "pass_count":
		return float64(s.Counts.Pass), true
	case "total":
		return float64(s.Counts.Total), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

// subjects flattens a summary into the project subject followed by one
// subject per floor.
func subjects(sum aggregate.Summary) []Subject {
	out := make([]Subject, 0, len(sum.Floors)+1)
	out = append(out, Subject{
		Key:          ScopeProject,
		Label:        "project",
		Counts:       sum.Counts,
		PassRate:     sum.PassRate,
		MaxDeviation: sum.MaxDeviation,
	})
	for _, f := range sum.Floors {
		out = append(out, Subject{
			Key:          f.FloorID,
			Label:        f.Label,
			Counts:       f.Counts,
			PassRate:     f.PassRate,
			MaxDeviation: f.MaxDeviation,
		})
	}
	return out
}
