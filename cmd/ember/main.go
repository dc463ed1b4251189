package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/config"
	"github.com/kristofer/ember/pkg/debug"
	"github.com/kristofer/ember/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runREPL(loadConfig())
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("ember version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL(loadConfig())
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(64)
		}
		runFile(os.Args[2], loadConfig())
	case "disasm":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: ember disasm <file.ember>")
			os.Exit(64)
		}
		disasmFile(os.Args[2])
	default:
		if len(os.Args) > 2 {
			printUsage()
			os.Exit(64)
		}
		runFile(os.Args[1], loadConfig())
	}
}

func printUsage() {
	fmt.Println("ember - a small dynamic, class-based scripting language")
	fmt.Println("\nUsage:")
	fmt.Println("  ember                   Start interactive REPL")
	fmt.Println("  ember [file]            Run a .ember source file")
	fmt.Println("  ember run [file]        Run a .ember source file")
	fmt.Println("  ember repl              Start interactive REPL")
	fmt.Println("  ember disasm [file]     Print disassembled bytecode for a file")
	fmt.Println("  ember version           Show version")
	fmt.Println("  ember help              Show this help")
	fmt.Println("\nConfiguration:")
	fmt.Println("  An ember.yaml in the working directory tunes GC and stack limits;")
	fmt.Println("  see pkg/config for the fields it accepts.")
}

// loadConfig reads ./ember.yaml if present, falling back to the
// built-in defaults when it doesn't exist.
func loadConfig() config.Config {
	cfg, err := config.Load("ember.yaml")
	if err != nil {
		return config.Default()
	}
	return cfg
}

func runFile(filename string, cfg config.Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(74)
	}

	v := vm.New(cfg)
	result, err := v.Interpret(string(data))
	switch result {
	case vm.CompileError:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(65)
	case vm.RuntimeErr:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(70)
	}
}

func disasmFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(74)
	}

	v := vm.New(config.Default())
	fn, errs := compiler.Compile(string(data), v)
	if fn == nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(65)
	}
	fmt.Print(debug.DisassembleChunk(filename, fn.Chunk))
}

func runREPL(cfg config.Config) {
	prompt, continuation := "ember> ", "....> "
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		prompt, continuation = "", ""
	}

	fmt.Printf("ember %s\n", version)
	fmt.Println("Type ':quit' to exit.")

	v := vm.New(cfg)
	scanner := bufio.NewScanner(os.Stdin)

	var buf strings.Builder
	for {
		if buf.Len() == 0 {
			fmt.Print(prompt)
		} else {
			fmt.Print(continuation)
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			switch strings.TrimSpace(line) {
			case ":quit", ":exit":
				return
			case "":
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		input := strings.TrimSpace(buf.String())
		if !strings.HasSuffix(input, ";") && !strings.HasSuffix(input, "}") {
			continue
		}

		if _, err := v.Interpret(input); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		buf.Reset()
	}
}
