package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
)

// CommandHelp is the help text of a command.
type CommandHelp struct {
	Usage       string
	Description string
	Subcommands []Subcommand
	Options     *flag.FlagSet
	Examples    []string
}

type Subcommand struct {
	Name        string
	Description string
}

// Print writes the help sections, separated by one blank line.
func (h *CommandHelp) Print(w io.Writer) {
	var sections []string

	if h.Usage != "" {
		sections = append(sections, "Usage:\n  "+h.Usage+"\n")
	}
	if h.Description != "" {
		sections = append(sections, "Description:\n"+indent(h.Description, "  "))
	}
	if len(h.Subcommands) > 0 {
		var b strings.Builder
		b.WriteString("Subcommands:\n")
		for _, s := range h.Subcommands {
			fmt.Fprintf(&b, "  %-18s %s\n", s.Name, s.Description)
		}
		sections = append(sections, b.String())
	}
	if h.Options != nil {
		var buf bytes.Buffer
		prev := h.Options.Output()
		h.Options.SetOutput(&buf)
		h.Options.PrintDefaults()
		h.Options.SetOutput(prev)
		sections = append(sections, "Options:\n"+indent(buf.String(), "  "))
	}
	if len(h.Examples) > 0 {
		sections = append(sections, "Examples:\n"+indent(strings.Join(h.Examples, "\n"), "  "))
	}

	fmt.Fprint(w, strings.Join(sections, "\n"))
}

func indent(text, prefix string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		b.WriteString(prefix + scanner.Text() + "\n")
	}
	return b.String()
}
