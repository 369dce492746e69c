// pdp/engine/conditions.go
package engine

import (
	"strings"

	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
)

// evaluateCondition checks one attribute or relationship predicate against
// the request. Attributes resolve from the request context first, then the
// subject's attributes. The expected value may reference the caller through
// "${subject.id}", which is how relationship predicates such as
// "resource.owner eq ${subject.id}" are expressed.
func evaluateCondition(condition model.Condition, request pdp_model.AccessRequest) bool {
	if condition.SubConditions != nil {
		return evaluateConditionSet(*condition.SubConditions, request)
	}

	actual, found := resolveAttribute(condition.Attribute, request)
	expected := substituteBindings(condition.Value, request)

	switch condition.Operator {
	case "eq":
		return found && valuesEqual(actual, expected)
	case "ne":
		return found && !valuesEqual(actual, expected)
	case "in":
		if !found {
			return false
		}
		for _, candidate := range toSlice(expected) {
			if valuesEqual(actual, candidate) {
				return true
			}
		}
		return false
	case "contains":
		if !found {
			return false
		}
		for _, member := range toSlice(actual) {
			if valuesEqual(member, expected) {
				return true
			}
		}
		return false
	case "gt":
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		return found && aok && bok && a > b
	case "lt":
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		return found && aok && bok && a < b
	case "prefix":
		s, sok := actual.(string)
		p, pok := expected.(string)
		return found && sok && pok && strings.HasPrefix(s, p)
	default:
		logger.Warn("Unknown condition operator", zap.String("operator", condition.Operator))
		return false
	}
}

func evaluateConditionSet(set model.ConditionSet, request pdp_model.AccessRequest) bool {
	if strings.EqualFold(set.Operator, "OR") {
		for _, condition := range set.Conditions {
			if evaluateCondition(condition, request) {
				return true
			}
		}
		return false
	}
	// AND is the default combinator.
	for _, condition := range set.Conditions {
		if !evaluateCondition(condition, request) {
			return false
		}
	}
	return true
}

// resolveAttribute reads "subject.X" from the subject's attributes and
// everything else from the request context.
func resolveAttribute(name string, request pdp_model.AccessRequest) (interface{}, bool) {
	if key, ok := strings.CutPrefix(name, "subject."); ok {
		value, found := request.Subject.Attributes[key]
		return value, found
	}
	value, found := request.Context[name]
	return value, found
}

// substituteBindings replaces "${subject.id}" style references in the
// expected value with fields of the request.
func substituteBindings(value interface{}, request pdp_model.AccessRequest) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	switch s {
	case "${subject.id}":
		return request.Subject.ID
	case "${subject.session_id}":
		return request.Subject.SessionID
	case "${subject.application_id}":
		return request.Subject.ApplicationID
	}
	return value
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func toSlice(value interface{}) []interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case []string:
		members := make([]interface{}, len(v))
		for i, s := range v {
			members[i] = s
		}
		return members
	}
	return nil
}
