package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printer writes human summaries, colored only on terminals.
type printer struct {
	w io.Writer

	ok, warn, bold *color.Color
}

func newPrinter(w io.Writer) printer {
	p := printer{
		w:    w,
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bold: color.New(color.Bold),
	}
	if !isTerminal(w) {
		p.ok.DisableColor()
		p.warn.DisableColor()
		p.bold.DisableColor()
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p printer) okf(format string, args ...any) {
	p.ok.Fprintf(p.w, format+"\n", args...)
}

func (p printer) warnf(format string, args ...any) {
	p.warn.Fprintf(p.w, format+"\n", args...)
}

func (p printer) boldf(format string, args ...any) {
	p.bold.Fprintf(p.w, format+"\n", args...)
}

func (p printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// encode writes v to w as indented JSON, or as YAML keeping the JSON field names and order.
func encode(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode output: %v", err)
	}

	if format != formatYAML {
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("could not convert output to YAML: %v", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("could not encode output: %v", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles JSON input comes with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
