package iogroup

import (
	"math"
	"reflect"
	"strconv"
)

// Sum adds all values. The sum of no values is 0.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Average returns the arithmetic mean, NaN for no values
func Average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return Sum(values) / float64(len(values))
}

// Min returns the smallest value, NaN for no values
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	result := values[0]
	for _, v := range values[1:] {
		result = math.Min(result, v)
	}
	return result
}

// Max returns the largest value, NaN for no values
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	result := values[0]
	for _, v := range values[1:] {
		result = math.Max(result, v)
	}
	return result
}

// Select0 returns the first value, NaN for no values
func Select0(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[0]
}

// FormatInteger renders the value as a whole number.
// Counters are integral; the float is only the carrier type.
func FormatInteger(value float64) string {
	if math.IsNaN(value) {
		return "NAN"
	}
	return strconv.FormatFloat(math.Trunc(value), 'f', 0, 64)
}

// FormatDouble renders up to 16 significant digits
func FormatDouble(value float64) string {
	if math.IsNaN(value) {
		return "NAN"
	}
	return strconv.FormatFloat(value, 'g', 16, 64)
}

var aggNames = []struct {
	name string
	fn   AggFunc
}{
	{"sum", Sum},
	{"average", Average},
	{"min", Min},
	{"max", Max},
	{"select_first", Select0},
}

// AggregationName returns the name of one of the aggregations in this
// package, or "custom"
func AggregationName(f AggFunc) string {
	if f == nil {
		return "none"
	}
	ptr := reflect.ValueOf(f).Pointer()
	for _, a := range aggNames {
		if reflect.ValueOf(a.fn).Pointer() == ptr {
			return a.name
		}
	}
	return "custom"
}
