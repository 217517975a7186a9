package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgHiBlack)
	valueColor  = color.New(color.FgWhite, color.Bold)
	warnColor   = color.New(color.FgYellow)
	okColor     = color.New(color.FgGreen)
)

func printHeader(w io.Writer, title string) {
	headerColor.Fprintln(w, title)
}

func printField(w io.Writer, label string, value any) {
	labelColor.Fprintf(w, "  %-14s ", label+":")
	valueColor.Fprintln(w, fmt.Sprint(value))
}

func printWarn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, format+"\n", args...)
}

func printOK(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, format+"\n", args...)
}
