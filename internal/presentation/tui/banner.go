package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"      _                   _             ", "#38bdf8"},
	{"  ___| |_ ___ _ __ __   _(_) _____      __", "#22d3ee"},
	{" / __| __/ _ \\ '_ \\\\ \\ / / |/ _ \\ \\ /\\ / /", "#2dd4bf"},
	{" \\__ \\ ||  __/ |_) |\\ V /| |  __/\\ V  V / ", "#34d399"},
	{" |___/\\__\\___| .__/  \\_/ |_|\\___| \\_/\\_/  ", "#4ade80"},
	{"             |_|                          ", "#a3e635"},
}

// PrintBanner writes the stepview banner to w, coloured for w's terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
