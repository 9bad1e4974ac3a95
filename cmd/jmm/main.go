package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"jmm/pkg/config"
	"jmm/pkg/driver"
	"jmm/pkg/errors"
)

const (
	historyFile = ".jmm_history"
	promptMain  = "jmm> "
	promptCont  = "...> "
)

func main() {
	interactive := flag.Bool("i", false, "Start the REPL after running the given file")
	configFlag := flag.String("config", config.FileName, "Project configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jmm: %v\n", err)
		os.Exit(78)
	}

	switch {
	case flag.NArg() > 1:
		fmt.Fprintf(os.Stderr, "Usage: jmm [-i] [file.java]\n")
		os.Exit(64)
	case flag.NArg() == 1:
		if !runFile(cfg, flag.Arg(0)) && !*interactive {
			os.Exit(70)
		}
		if !*interactive {
			return
		}
	}
	os.Exit(repl(cfg))
}

// runFile compiles one file and runs the configured main class.
func runFile(cfg *config.Config, path string) bool {
	res, err := driver.CompileFiles(driver.Options{Config: cfg, Resolvers: driver.SourcePath(cfg.SourcePath)}, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jmm: %v\n", err)
		return false
	}
	res.Report(os.Stderr)
	if !res.OK() {
		return false
	}
	class := cfg.Run.Main
	if res.Program != nil && res.Program.Class(strings.ReplaceAll(class, ".", "/")) == nil && len(res.Program.Classes) > 0 {
		// Fall back to the first class of the file.
		class = res.Program.Classes[0].Name
	}
	return report(res.Run(class, os.Stdout))
}

func repl(cfg *config.Config) int {
	fmt.Println("J-- (Ctrl+C cancels input, Ctrl+D exits, :quit leaves, :types lists declarations)")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := driver.NewSession(cfg, os.Stdout)
	for {
		input, ok := readEntry(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(input)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return 0
		case trimmed == ":types":
			fmt.Println(strings.Join(session.Declarations(), " "))
			continue
		case strings.HasPrefix(trimmed, ":"):
			fmt.Println("unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		res, err := session.Eval(input)
		if res != nil {
			res.Report(os.Stderr)
		}
		report(err)
	}
}

// readEntry reads lines until the braces of the entry balance.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if stderrors.Is(err, io.EOF) {
			return "", false
		}
		if stderrors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "jmm: %v\n", err)
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			return b.String(), true
		}
	}
}

func report(err error) bool {
	if err == nil {
		return true
	}
	var rt *errors.RuntimeError
	if stderrors.As(err, &rt) {
		errors.DisplayErrors(os.Stderr, []errors.JmmError{rt})
	} else {
		fmt.Fprintf(os.Stderr, "jmm: %v\n", err)
	}
	return false
}
