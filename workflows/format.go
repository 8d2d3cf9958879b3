package workflows

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Array printing follows NumPy's default print options: 75 columns,
// at most 8 fractional digits, trailing zeros trimmed.
const (
	lineWidth = 75
	precision = 8
)

// FormatFloat renders v the way Python prints a float: the shortest
// round-trip digits, always with a decimal point or an exponent.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatFloatArray renders v the way NumPy prints a one-dimensional float
// array, e.g. "[0.01667014 0.         0.90614339 0.07718647]".
func FormatFloatArray(v []float64) string {
	if len(v) == 0 {
		return "[]"
	}
	return wrap(floatWords(v), lineWidth-1, " ")
}

// FormatIntMatrix renders the integer-valued matrix m the way NumPy prints
// a two-dimensional integer array.
func FormatIntMatrix(m mat.Matrix) string {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return "[]"
	}
	cells := make([][]string, r)
	width := 0
	for i := range cells {
		cells[i] = make([]string, c)
		for j := range cells[i] {
			s := strconv.FormatInt(int64(math.Round(m.At(i, j))), 10)
			cells[i][j] = s
			width = max(width, len(s))
		}
	}

	const indent = " "
	var b strings.Builder
	for i, row := range cells {
		for j, s := range row {
			row[j] = strings.Repeat(" ", width-len(s)) + s
		}
		b.WriteString(indent)
		b.WriteString(wrap(row, lineWidth-2, indent+" "))
		if i < r-1 {
			b.WriteString("\n")
		}
	}
	return "[" + b.String()[len(indent):] + "]"
}

// wrap joins words with single spaces inside brackets, breaking lines
// longer than width and continuing them after indent.
func wrap(words []string, width int, indent string) string {
	var b strings.Builder
	line := indent
	for i, w := range words {
		if len(line)+len(w) > width && len(line) > len(indent) {
			b.WriteString(strings.TrimRight(line, " "))
			b.WriteString("\n")
			line = indent
		}
		line += w
		if i < len(words)-1 {
			line += " "
		}
	}
	b.WriteString(line)
	return "[" + b.String()[len(indent):] + "]"
}

// floatWords formats every element with a common layout: positional with
// aligned decimal points, or scientific when the magnitudes call for it.
func floatWords(v []float64) []string {
	var (
		minAbs  = math.Inf(1)
		maxAbs  float64
		nonZero bool
	)
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
			continue
		}
		a := math.Abs(x)
		minAbs = math.Min(minAbs, a)
		maxAbs = math.Max(maxAbs, a)
		nonZero = true
	}
	if nonZero && (maxAbs >= 1e8 || minAbs < 1e-4 || maxAbs/minAbs > 1e3) {
		return scientificWords(v)
	}
	return positionalWords(v)
}

func positionalWords(v []float64) []string {
	intParts := make([]string, len(v))
	fracParts := make([]string, len(v))
	padLeft, padRight := 0, 0
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		s := strconv.FormatFloat(x, 'f', precision, 64)
		s = strings.TrimRight(s, "0")
		intParts[i], fracParts[i], _ = strings.Cut(s, ".")
		padLeft = max(padLeft, len(intParts[i]))
		padRight = max(padRight, len(fracParts[i]))
	}

	words := make([]string, len(v))
	for i, x := range v {
		if s, ok := nonFinite(x); ok {
			words[i] = padTo(s, padLeft+padRight+1)
			continue
		}
		words[i] = padTo(intParts[i], padLeft) + "." + fracParts[i] +
			strings.Repeat(" ", padRight-len(fracParts[i]))
	}
	return words
}

func scientificWords(v []float64) []string {
	digits, expDigits := 0, 2
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(x, 'e', precision, 64), "e")
		_, frac, _ := strings.Cut(mantissa, ".")
		digits = max(digits, len(strings.TrimRight(frac, "0")))
		expDigits = max(expDigits, len(exp)-1)
	}

	mantissas := make([]string, len(v))
	exps := make([]string, len(v))
	padLeft := 0
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(x, 'e', digits, 64), "e")
		if digits == 0 {
			mantissa += "."
		}
		mantissas[i] = mantissa
		exps[i] = exp[:1] + padZeros(exp[1:], expDigits)
		intPart, _, _ := strings.Cut(mantissa, ".")
		padLeft = max(padLeft, len(intPart))
	}

	words := make([]string, len(v))
	width := padLeft + 1 + digits + 2 + expDigits
	for i, x := range v {
		if s, ok := nonFinite(x); ok {
			words[i] = padTo(s, width)
			continue
		}
		intPart, _, _ := strings.Cut(mantissas[i], ".")
		words[i] = strings.Repeat(" ", padLeft-len(intPart)) + mantissas[i] + "e" + exps[i]
	}
	return words
}

func nonFinite(x float64) (string, bool) {
	switch {
	case math.IsNaN(x):
		return "nan", true
	case math.IsInf(x, 1):
		return "inf", true
	case math.IsInf(x, -1):
		return "-inf", true
	}
	return "", false
}

func padTo(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padZeros(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
