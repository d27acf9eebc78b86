// Package output routes primary program output to stdout.
//
// gw's stdout is a contract: under the shell wrapper it carries exactly
// the selected worktree path, and in non-interactive runs it carries
// the data the user asked for. Everything else (prompts, progress,
// the TUI itself) goes to stderr through the log package. Commands
// obtain the Printer from their context so tests can capture stdout.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Printer writes data output: worktree paths, reports, shell snippets.
type Printer struct {
	out io.Writer
}

// New returns a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Print(a ...any)                 { fmt.Fprint(p.out, a...) }
func (p *Printer) Println(a ...any)               { fmt.Fprintln(p.out, a...) }
func (p *Printer) Printf(format string, a ...any) { fmt.Fprintf(p.out, format, a...) }

type ctxKey struct{}

// WithPrinter returns a context carrying a Printer that writes to out.
func WithPrinter(ctx context.Context, out io.Writer) context.Context {
	return context.WithValue(ctx, ctxKey{}, New(out))
}

// FromContext returns the context's Printer, or one writing to
// os.Stdout when the context carries none.
func FromContext(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout)
}
