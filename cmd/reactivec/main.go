// Command reactivec is a thin CLI over pkg/reactivec (SPEC_FULL.md §6):
// read one function's source from --input, compile it, and print the
// result to stdout, or the failure's message as plain text to stderr
// (exit status 1) on failure.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"reactivec/internal/config"
	"reactivec/internal/parser"
	"reactivec/pkg/reactivec"
)

func main() {
	app := &cli.App{
		Name:    "reactivec",
		Usage:   "lower a single JS/TS function to its reactive-cache form",
		Version: reactivec.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "path to the source file"},
			&cli.StringFlag{Name: "file-type", Usage: "js|jsx|ts|tsx (overrides --config)"},
			&cli.BoolFlag{Name: "pass-through", Usage: "return original source on unsupported syntax instead of aborting"},
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	source, err := os.ReadFile(c.String("input"))
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fileType := cfg.FileType()
	if s := c.String("file-type"); s != "" {
		fileType = parser.ParseFileType(s)
	}

	passThrough := cfg.PassThroughOnFailure || c.Bool("pass-through")

	result := reactivec.Compile(string(source), reactivec.CompileOptions{
		FileType:             fileType,
		PassThroughOnFailure: passThrough,
		CacheSlotSymbol:      cfg.CacheSlotSymbol,
	})

	if !result.Success {
		msg := "compilation failed"
		if result.Error != nil {
			msg = *result.Error
		}
		fmt.Fprintln(os.Stderr, msg)
		if result.Code != "" {
			// pass-through mode: still emit the untouched source so a
			// caller piping stdout onward gets something usable.
			fmt.Println(result.Code)
		}
		os.Exit(1)
	}

	fmt.Println(result.Code)
	return nil
}
