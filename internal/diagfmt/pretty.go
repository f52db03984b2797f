// Package diagfmt renders diagnostics for terminals and tools.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ember/internal/diag"
	"ember/internal/source"
)

type palette struct {
	sev      map[diag.Severity]*color.Color
	path     *color.Color
	gutter   *color.Color
	note     *color.Color
	emphasis *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		path:     color.New(color.Bold),
		gutter:   color.New(color.FgBlue),
		note:     color.New(color.FgGreen),
		emphasis: color.New(color.Bold),
	}
	all := []*color.Color{p.path, p.gutter, p.note, p.emphasis}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty writes bag's diagnostics (sorted beforehand) as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with the span underlined ^~~~ and, when
// enabled, the notes in the same shape.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		sc := p.sev[d.Severity]
		if sc == nil {
			sc = p.emphasis
		}
		loc, ok := location(fs, d.Primary, opts.PathMode)
		if ok {
			fmt.Fprintf(w, "%s: ", p.path.Sprint(loc))
		}
		fmt.Fprintf(w, "%s %s: %s\n", sc.Sprint(d.Severity.String()), sc.Sprint(d.Code.ID()), p.emphasis.Sprint(d.Message))
		if ok {
			snippet(w, fs, d.Primary, int(opts.Context), p, sc)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nloc, nok := location(fs, n.Span, opts.PathMode)
			if nok {
				fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), nloc, n.Msg)
				snippet(w, fs, n.Span, 0, p, p.note)
			} else {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
			}
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "... %d more diagnostics not shown\n", dropped)
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) (string, bool) {
	if fs == nil || sp == source.NoSpan || int(sp.File) >= fs.Len() {
		return "", false
	}
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", displayPath(fs, f, mode), start.Line, start.Col), true
}

// snippet prints the line holding sp with up to ctx lines before it and a
// caret line under the span. Columns account for wide runes.
func snippet(w io.Writer, fs *source.FileSet, sp source.Span, ctx int, p palette, mark *color.Color) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	line := f.Line(start.Line)
	if line == "" && start.Line > 1 {
		return
	}
	first := max(int(start.Line)-ctx, 1)
	numWidth := len(fmt.Sprint(start.Line))
	for n := first; n <= int(start.Line); n++ {
		text := expandTabs(f.Line(uint32(n))) // #nosec G115 -- bounded by start.Line
		fmt.Fprintf(w, " %s %s\n", p.gutter.Sprintf("%*d |", numWidth, n), text)
	}

	col := min(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = min(int(end.Col)-1, len(line))
	}
	pad := runewidth.StringWidth(expandTabs(line[:col]))
	width := max(runewidth.StringWidth(expandTabs(line[col:max(stop, col)])), 1)
	marks := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %s %s%s\n", p.gutter.Sprintf("%*s |", numWidth, ""), strings.Repeat(" ", pad), mark.Sprint(marks))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
