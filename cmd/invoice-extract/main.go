// Command invoice-extract prints the fields found in recognized invoice text.
//
//	invoice-extract [--rules rules.yaml] [--raw] [file]
//
// Text is read from file, or from stdin when no file is given.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-manager/internal/extraction"
)

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("invoice-extract")
	var (
		rulesPath = fs.StringLong("rules", "", "YAML file overriding extraction rules")
		raw       = fs.BoolLong("raw", "Skip normalization of amounts")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("INVOICE_EXTRACT")); err != nil {
		return fmt.Errorf("%s\n%w", ffhelp.Flags(fs), err)
	}

	rules, err := extraction.LoadRules(*rulesPath)
	if err != nil {
		return err
	}
	extractor, err := extraction.NewExtractor(rules)
	if err != nil {
		return err
	}

	in := stdin
	if rest := fs.GetArgs(); len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}
	text, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fields := extractor.Parse(string(text))
	if *raw {
		fields = extractor.Extract(string(text))
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(fields)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
