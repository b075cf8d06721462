package scene

import "fmt"

// Diagnostics is the ordered record of conditions raised while building a
// document. Errors are parse-fatal, warnings are not; both keep the order
// in which they were raised. Each parse call owns its own collector, there
// is no process-wide sink.
type Diagnostics struct {
	Errors   []string
	Warnings []string
	Success  bool
}

// AddError appends a parse-fatal condition.
func (d *Diagnostics) AddError(msg string) {
	d.Errors = append(d.Errors, msg)
}

// AddErrorf appends a formatted parse-fatal condition.
func (d *Diagnostics) AddErrorf(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

// AddErrorAt appends a parse-fatal condition tagged with a source line.
func (d *Diagnostics) AddErrorAt(line int, msg string) {
	d.Errors = append(d.Errors, fmt.Sprintf("line %d: %s", line, msg))
}

// AddWarning appends a non-fatal condition.
func (d *Diagnostics) AddWarning(msg string) {
	d.Warnings = append(d.Warnings, msg)
}

// AddWarningf appends a formatted non-fatal condition.
func (d *Diagnostics) AddWarningf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// AddWarningAt appends a non-fatal condition tagged with a source line.
func (d *Diagnostics) AddWarningAt(line int, msg string) {
	d.Warnings = append(d.Warnings, fmt.Sprintf("line %d: %s", line, msg))
}

// HasErrors reports whether any parse-fatal condition was raised.
func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}
