// Command csv-type-infer proposes a column type for every header column of
// a CSV file and prints {"columns": [...], "types": [...]} to stdout.
//
// Exit status is 2 on usage errors and 1 when the file cannot be read.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/JayJamieson/csv-warehouse/pkg/infer"
)

var cli struct {
	Path string `arg:"" name:"csv_path" help:"CSV file to analyse"`
}

func main() {
	parser, err := kong.New(&cli,
		kong.Name("csv_type_infer"),
		kong.Description("Infer INTEGER, REAL or TEXT for each column of a CSV file."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "usage: csv_type_infer <csv_path>\n%v\n", err)
		os.Exit(2)
	}

	os.Exit(run(cli.Path, os.Stdout, os.Stderr))
}

func run(path string, stdout, stderr io.Writer) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "csv_type_infer: %v\n", err)
		return 1
	}
	defer f.Close()

	doc, err := infer.Detect(f)
	if err != nil {
		fmt.Fprintf(stderr, "csv_type_infer: %v\n", err)
		return 1
	}

	if err := json.NewEncoder(stdout).Encode(doc); err != nil {
		fmt.Fprintf(stderr, "csv_type_infer: %v\n", err)
		return 1
	}
	return 0
}
