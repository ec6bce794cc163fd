package csvers

import (
	"fmt"
	"strings"

	"github.com/jaxxstorm/csvers/internal/errors"
)

// Diagnostic is one line of an error or warning report.
type Diagnostic struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// Diagnostics accumulates diagnostic lines. A non empty Diagnostics is an error.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(code errors.ErrorCode, format string, args ...any) {
	*d = append(*d, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Error joins every line.
func (d Diagnostics) Error() string {
	lines := make([]string, len(d))
	for i, diag := range d {
		lines[i] = diag.String()
	}
	return strings.Join(lines, "\n")
}

// Has reports whether a diagnostic with the given code exists.
func (d Diagnostics) Has(code errors.ErrorCode) bool {
	for _, diag := range d {
		if diag.Code == code {
			return true
		}
	}
	return false
}

// Messages returns the diagnostic messages with the given code.
func (d Diagnostics) Messages(code errors.ErrorCode) []string {
	var out []string
	for _, diag := range d {
		if diag.Code == code {
			out = append(out, diag.Message)
		}
	}
	return out
}
