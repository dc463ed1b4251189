// Package ember is the embedding entry point for the language: compile
// and run source text against a VM, without needing to touch
// pkg/compiler or pkg/vm directly.
package ember

import (
	"github.com/kristofer/ember/pkg/config"
	"github.com/kristofer/ember/pkg/vm"
)

// Result classifies how Interpret finished.
type Result int

const (
	OK Result = iota
	CompileError
	RuntimeError
)

// Interpreter wraps a VM so a host program can run more than one
// chunk of source against the same globals — the shape a REPL needs.
type Interpreter struct {
	vm *vm.VM
}

// New builds an Interpreter. A zero config.Config means config.Default().
func New(cfg config.Config) *Interpreter {
	return &Interpreter{vm: vm.New(cfg)}
}

// Stdout redirects everything `print` writes; nil restores the
// default of writing to the process's real stdout.
func (i *Interpreter) Stdout(w func(string)) {
	i.vm.Stdout = w
}

// Interpret compiles and runs source against this Interpreter's VM.
func (i *Interpreter) Interpret(source string) (Result, error) {
	res, err := i.vm.Interpret(source)
	return Result(res), err
}

// Interpret is the one-shot convenience form: a fresh VM, default
// configuration, one chunk of source.
func Interpret(source string) (Result, error) {
	return New(config.Default()).Interpret(source)
}
