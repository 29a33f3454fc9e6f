package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func (r *Registry) registerNumber() {
	r.Register("calc", filterCalc)
	r.Register("round", filterRound)
	r.Register("number_format", filterNumberFormat)
}

// filterCalc applies a simple arithmetic step: calc:+5, calc:-2, calc:*3,
// calc:/4. Division by zero leaves the value unchanged.
func filterCalc(value, param, _ string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value, fmt.Errorf("calc on non-numeric value %q", value)
	}
	p := strings.TrimSpace(Unquote(strings.TrimSpace(param)))
	if len(p) < 2 {
		return value, fmt.Errorf("calc needs an operator and operand, got %q", param)
	}
	op := p[0]
	operand, err := strconv.ParseFloat(strings.TrimSpace(p[1:]), 64)
	if err != nil {
		return value, fmt.Errorf("calc operand %q: %w", p[1:], err)
	}
	switch op {
	case '+':
		v += operand
	case '-':
		v -= operand
	case '*':
		v *= operand
	case '/':
		if operand == 0 {
			return value, fmt.Errorf("calc division by zero")
		}
		v /= operand
	default:
		return value, fmt.Errorf("calc operator %q", string(op))
	}
	return formatFloat(v), nil
}

func filterRound(value, param, _ string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value, fmt.Errorf("round on non-numeric value %q", value)
	}
	places := 0
	if params := SplitParams(param); len(params) > 0 && params[0] != "" {
		places, err = strconv.Atoi(params[0])
		if err != nil {
			return value, fmt.Errorf("round places %q: %w", params[0], err)
		}
	}
	shift := math.Pow(10, float64(places))
	return formatFloat(math.Round(v*shift) / shift), nil
}

// filterNumberFormat renders a number with a fixed decimal count and
// grouped thousands: number_format:decimals[,decimalPoint,thousandsSep].
func filterNumberFormat(value, param, _ string) (string, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value, fmt.Errorf("number_format on non-numeric value %q", value)
	}
	decimals := 0
	point := "."
	thousands := ","
	params := SplitParams(param)
	if len(params) > 0 && params[0] != "" {
		decimals, err = strconv.Atoi(params[0])
		if err != nil || decimals < 0 {
			return value, fmt.Errorf("number_format decimals %q", params[0])
		}
	}
	if len(params) > 1 {
		point = params[1]
	}
	if len(params) > 2 {
		thousands = params[2]
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := strings.Join(groups, thousands)
	if fracPart != "" {
		out += point + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
