package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tailored-agentic-units/silo/watch"
)

// printer renders successive states as coloured line diffs.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	previous string
	dmp      *diffmatchpatch.DiffMatchPatch

	header *color.Color
	added  *color.Color
	remove *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:    out,
		dmp:    diffmatchpatch.New(),
		header: color.New(color.FgCyan, color.Bold),
		added:  color.New(color.FgGreen),
		remove: color.New(color.FgRed),
	}
}

// Print writes value in full and remembers it as the base for the next diff.
func (p *printer) Print(value any) error {
	text, err := render(value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.previous = text
	_, err = fmt.Fprintln(p.out, text)
	return err
}

// PrintUpdate writes the lines that changed since the last printed state.
func (p *printer) PrintUpdate(update watch.Update) error {
	text, err := render(update.Value)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.header.Fprintf(p.out, "@@ %s #%d %s @@\n", update.Node, update.Sequence, update.Time.Format("15:04:05.000"))

	a, b, lines := p.dmp.DiffLinesToChars(p.previous, text)
	diffs := p.dmp.DiffCharsToLines(p.dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		var (
			c      *color.Color
			prefix string
		)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			c, prefix = p.added, "+ "
		case diffmatchpatch.DiffDelete:
			c, prefix = p.remove, "- "
		default:
			continue
		}

		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if _, err := c.Fprintln(p.out, prefix+line); err != nil {
				return err
			}
		}
	}

	p.previous = text
	return nil
}

func render(value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render state: %w", err)
	}
	return string(data) + "\n", nil
}
