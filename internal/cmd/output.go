package cmd

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// colorEnabled reports whether w is a terminal that should get colored output.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// painter returns a color that is a no-op when w is not a terminal.
func painter(w io.Writer, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if !colorEnabled(w) {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}
