package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jmm/pkg/config"
	"jmm/pkg/driver"
	"jmm/pkg/errors"
	"jmm/pkg/parser"
)

func main() {
	configFlag := flag.String("config", config.FileName, "Project configuration file")
	outFlag := flag.String("o", "", "Directory for class listings (default: output from the configuration)")
	astFlag := flag.Bool("ast", false, "Dump the analyzed AST of every unit")
	asmFlag := flag.Bool("S", false, "Print the disassembly to stdout instead of writing listings")
	werrorFlag := flag.Bool("Werror", false, "Treat warnings as errors")
	runFlag := flag.String("run", "", "Run the static main method of the named class after compiling")
	pathFlag := flag.String("sourcepath", "", "Directories searched for imported units, separated by "+string(os.PathListSeparator))
	traceFlag := flag.Bool("trace", false, "Log compilation phases to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jmmc [options] <file.java|dir>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(64) // command line usage error
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jmmc: %v\n", err)
		os.Exit(78) // configuration error
	}
	if *werrorFlag {
		cfg.WarningsAsErrors = true
	}
	if *outFlag != "" {
		cfg.Output = *outFlag
	}
	if *runFlag != "" {
		cfg.Run.Main = *runFlag
	}
	dirs := cfg.SourcePath
	if *pathFlag != "" {
		dirs = append(filepath.SplitList(*pathFlag), dirs...)
	}

	opts := driver.Options{Config: cfg, Resolvers: driver.SourcePath(dirs)}
	if *traceFlag || cfg.Trace {
		opts.Trace = os.Stderr
	}

	res, err := driver.CompileFiles(opts, flag.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jmmc: %v\n", err)
		os.Exit(66) // cannot open input
	}
	if *astFlag {
		for _, cu := range res.Units {
			fmt.Printf("--- AST (%s) ---\n", cu.Source.DisplayPath())
			parser.DumpAST(os.Stdout, cu)
		}
	}
	res.Report(os.Stderr)
	if !res.OK() {
		fmt.Fprintf(os.Stderr, "%d error(s)\n", len(res.Errors))
		os.Exit(65) // data format error
	}

	if *asmFlag {
		res.Program.Disassemble(os.Stdout)
	} else {
		written, err := res.WriteListings(cfg.Output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jmmc: %v\n", err)
			os.Exit(73) // cannot create output
		}
		if opts.Trace != nil {
			fmt.Fprintf(os.Stderr, "[jmm] wrote %s\n", strings.Join(written, ", "))
		}
	}

	if *runFlag == "" {
		return
	}
	if err := res.Run(cfg.Run.Main, os.Stdout); err != nil {
		var rt *errors.RuntimeError
		if stderrors.As(err, &rt) {
			errors.DisplayErrors(os.Stderr, []errors.JmmError{rt})
		} else {
			fmt.Fprintf(os.Stderr, "jmmc: %v\n", err)
		}
		os.Exit(70) // internal software error
	}
}
