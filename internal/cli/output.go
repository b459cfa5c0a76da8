package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// printer writes user-facing results. Icons:
//
//	✓  success
//	✗  error / failure (written to the error stream)
//	⚠  warning
//	○  skipped
//	~  neutral info
type printer struct {
	out io.Writer
	err io.Writer
}

func (p *printer) section(title string) {
	fmt.Fprintf(p.out, "\n=== %s ===\n", title)
}

func (p *printer) line(w io.Writer, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
	} else {
		fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
	}
}

func (p *printer) ok(name, msg string)   { p.line(p.out, "✓", name, msg) }
func (p *printer) fail(name, msg string) { p.line(p.err, "✗", name, msg) }
func (p *printer) warn(name, msg string) { p.line(p.out, "⚠", name, msg) }
func (p *printer) skip(name, msg string) { p.line(p.out, "○", name, msg) }
func (p *printer) info(name, msg string) { p.line(p.out, "~", name, msg) }

// chain prints every error in err's wrap chain, outermost first.
func (p *printer) chain(err error) {
	depth := 0
	for err != nil {
		fmt.Fprintf(p.err, "     %s%s\n", strings.Repeat("  ", depth), err)
		err = unwrapOne(err)
		depth++
	}
}

// unwrapOne follows single wraps and the last error of joined wraps, which
// is where fmt.Errorf puts the underlying cause.
func unwrapOne(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs := j.Unwrap()
		if len(errs) > 0 {
			return errs[len(errs)-1]
		}
	}
	return nil
}
