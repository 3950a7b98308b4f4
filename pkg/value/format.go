package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// groupingPrinter renders grouped ("N") numeric formats with the
// comma-grouped invariant conventions.
var groupingPrinter = message.NewPrinter(language.English)

// Format renders v as a string. The format argument is the optional
// `:format` suffix from the template source; "" means the default rendering
// for the kind. Arrays, dicts, host objects and the context accessor have
// no direct string form and raise FormatInvalid.
func Format(v Value, format string) (string, error) {
	switch x := v.(type) {
	case NullValue:
		return "", nil
	case BoolValue:
		return formatBool(bool(x), format), nil
	case NumberValue:
		return formatNumber(float64(x), format)
	case StringValue:
		return formatString(string(x), format), nil
	default:
		return "", FormatInvalidError(v.Kind(), format)
	}
}

// formatBool renders "True"/"False", or with an "a/b" format the chosen
// alternative.
func formatBool(b bool, format string) string {
	if i := strings.IndexByte(format, '/'); i >= 0 {
		if b {
			return format[:i]
		}
		return format[i+1:]
	}
	if b {
		return "True"
	}
	return "False"
}

func formatString(s, format string) string {
	switch format {
	case "upper":
		return strings.ToUpper(s)
	case "lower":
		return strings.ToLower(s)
	case "trim":
		return strings.TrimSpace(s)
	default:
		// Unknown string formats fall through to identity.
		return s
	}
}

// formatNumber interprets format the way the standard double formatter
// does: a specifier letter with an optional precision (F2, N0, E, P1, D4,
// X), a custom 0/# pattern, or empty for the shortest round-trip form.
func formatNumber(f float64, format string) (string, error) {
	if format == "" {
		return defaultNumber(f), nil
	}
	letter := format[0]
	rest := format[1:]
	precision := -1
	if rest != "" {
		p, err := strconv.Atoi(rest)
		if err != nil || p < 0 {
			return customNumberPattern(f, format)
		}
		precision = p
	}
	switch letter {
	case 'F', 'f':
		if precision < 0 {
			precision = 2
		}
		return strconv.FormatFloat(f, 'f', precision, 64), nil
	case 'N', 'n':
		if precision < 0 {
			precision = 2
		}
		return groupingPrinter.Sprintf("%."+strconv.Itoa(precision)+"f", f), nil
	case 'E', 'e':
		if precision < 0 {
			precision = 6
		}
		s := strconv.FormatFloat(f, byte(letter), precision, 64)
		return padExponent(s, letter), nil
	case 'G', 'g':
		if precision < 0 {
			return defaultNumber(f), nil
		}
		return strconv.FormatFloat(f, 'g', precision, 64), nil
	case 'P', 'p':
		if precision < 0 {
			precision = 2
		}
		return strconv.FormatFloat(f*100, 'f', precision, 64) + "%", nil
	case 'D', 'd':
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return "", FormatInvalidError(KindNumber, format)
		}
		s := strconv.FormatInt(int64(math.Abs(f)), 10)
		if precision > len(s) {
			s = strings.Repeat("0", precision-len(s)) + s
		}
		if f < 0 {
			s = "-" + s
		}
		return s, nil
	case 'X', 'x':
		if f != math.Trunc(f) || f < 0 {
			return "", FormatInvalidError(KindNumber, format)
		}
		s := strconv.FormatInt(int64(f), 16)
		if letter == 'X' {
			s = strings.ToUpper(s)
		}
		if precision > len(s) {
			s = strings.Repeat("0", precision-len(s)) + s
		}
		return s, nil
	default:
		return customNumberPattern(f, format)
	}
}

// defaultNumber is the unformatted rendering: integral doubles print
// without a fractional part, everything else prints the shortest string
// that round-trips.
func defaultNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// customNumberPattern supports the 0/# digit patterns ("0.00", "#.##").
// The fractional digit count is taken from the pattern; '0' positions force
// a digit, '#' positions drop trailing zeros.
func customNumberPattern(f float64, pattern string) (string, error) {
	dot := strings.IndexByte(pattern, '.')
	intPart, fracPart := pattern, ""
	if dot >= 0 {
		intPart, fracPart = pattern[:dot], pattern[dot+1:]
	}
	if strings.Trim(intPart, "0#,") != "" || strings.Trim(fracPart, "0#") != "" {
		return "", FormatInvalidError(KindNumber, pattern)
	}
	s := strconv.FormatFloat(f, 'f', len(fracPart), 64)
	if optional := len(fracPart) - len(strings.TrimRight(fracPart, "#")); optional > 0 && strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s, nil
}

// padExponent normalises Go's e+07 style to the standard three-digit
// exponent (E+007).
func padExponent(s string, letter byte) string {
	i := strings.IndexByte(s, letter)
	if i < 0 {
		return s
	}
	mantissa, exp := s[:i], s[i+1:]
	sign := ""
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		sign, exp = string(exp[0]), exp[1:]
	}
	for len(exp) < 3 {
		exp = "0" + exp
	}
	return fmt.Sprintf("%s%c%s%s", mantissa, letter, sign, exp)
}
