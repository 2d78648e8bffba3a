package web

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest float64) bool

// QueryParamError reports a missing or invalid query parameter.
type QueryParamError struct {
	Key   string
	Value string
}

func (e *QueryParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s url parameter is required", e.Key)
	}
	return fmt.Sprintf("Invalid %s number: %s", e.Key, e.Value)
}

func newComparisonValidator(valueInClosure float64, compareFn func(argValue, closedValue float64) bool) ParamValidator {
	return func(argValue float64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// Gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func Gte(valToCompareAgainst float64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue float64) bool {
		return argValue >= closedValue
	})
}

// ParseFloatParam reads a required finite float query parameter and checks it against the validators.
func ParseFloatParam(r *http.Request, key string, validators ...ParamValidator) (float64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, &QueryParamError{Key: key}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &QueryParamError{Key: key, Value: value}
	}
	for _, v := range validators {
		if !v(f) {
			return 0, &QueryParamError{Key: key, Value: value}
		}
	}
	return f, nil
}
