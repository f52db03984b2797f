// Package ir is the typed, SSA-form control-flow graph produced by irgen,
// rewritten by lower and opt, and handed to the external emitter.
//
// A Module owns the Type Table and its Functions; a Function owns its
// Blocks; a Block owns its Instrs. Instructions refer to each other and
// to constants by pointer identity.
package ir

import (
	"fmt"

	"ember/internal/source"
	"ember/internal/types"
)

type Module struct {
	Types     *types.Table
	Functions []*Function

	literals map[litKey]*Literal
	global   *GlobalObject
	builtins map[string]*Builtin
	names    map[string]bool
}

func NewModule(tab *types.Table) *Module {
	return &Module{
		Types:    tab,
		literals: make(map[litKey]*Literal),
		global:   &GlobalObject{typ: tab.Builtins().Object},
		builtins: make(map[string]*Builtin),
		names:    make(map[string]bool),
	}
}

// FunctionKind separates ordinary functions from the suspendable ones
// and the state machines lowering builds for them.
type FunctionKind uint8

const (
	FuncNormal FunctionKind = iota
	FuncGenerator
	FuncAsync
	// FuncStateMachine is the inner resumable body of a lowered generator
	// or async function.
	FuncStateMachine
)

func (k FunctionKind) String() string {
	switch k {
	case FuncGenerator:
		return "generator"
	case FuncAsync:
		return "async"
	case FuncStateMachine:
		return "statemachine"
	}
	return "normal"
}

type Function struct {
	Name   string
	Module *Module
	Kind   FunctionKind
	Strict bool
	Span   source.Span

	Params     []*Param
	This       *Param
	ReturnType types.TypeID

	Blocks []*Block
	Frame  []*Variable

	// Parent is the lexically enclosing function; nil for the program.
	Parent *Function
	// EnvParent is set when the body reaches slots of an enclosing
	// function through the environment chain.
	EnvParent bool

	// Inner is the state machine built for a lowered generator or async
	// function; StateMachine is set on that inner function.
	Inner        *Function
	StateMachine *StateMachine
}

// NewFunction creates an empty function. Names are made unique within
// the module so dumps can refer to functions by name.
func (m *Module) NewFunction(name string, kind FunctionKind, parent *Function) *Function {
	if name == "" {
		name = "anonymous"
	}
	unique := name
	for n := 1; m.names[unique]; n++ {
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	m.names[unique] = true
	f := &Function{
		Name:       unique,
		Module:     m,
		Kind:       kind,
		Parent:     parent,
		ReturnType: m.Types.Builtins().Any,
	}
	f.This = &Param{Name: "this", Index: -1, Func: f}
	m.Functions = append(m.Functions, f)
	return f
}

// Function finds a function by its unique name.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (f *Function) Type() types.TypeID { return f.Module.Types.Builtins().Object }

func (f *Function) AddParam(name string) *Param {
	p := &Param{Name: name, Index: len(f.Params), Func: f}
	f.Params = append(f.Params, p)
	return p
}

func (f *Function) AddVariable(name string) *Variable {
	v := &Variable{Name: name, Func: f}
	f.Frame = append(f.Frame, v)
	return v
}

// Entry is the first block; it has no predecessors.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

func (f *Function) NewBlock() *Block {
	b := &Block{Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Ancestor reports whether g encloses f (or is f).
func (f *Function) Ancestor(g *Function) bool {
	for p := f; p != nil; p = p.Parent {
		if p == g {
			return true
		}
	}
	return false
}

// StateKind enumerates generator states.
type StateKind uint8

const (
	StateNotStarted StateKind = iota
	StateSuspendedAt
	StateCompleted
)

// State is one generator state and the block that resumes it.
type State struct {
	Kind  StateKind
	Site  int // 1-based suspend site for StateSuspendedAt
	Block *Block
}

func (s State) String() string {
	switch s.Kind {
	case StateSuspendedAt:
		return fmt.Sprintf("SuspendedAt(%d)", s.Site)
	case StateCompleted:
		return "Completed"
	}
	return "NotStarted"
}

// StateMachine is attached to a lowered state-machine function. States
// are numbered by position: NotStarted is 0, SuspendedAt(k) is k and
// Completed is last.
type StateMachine struct {
	States []State
}

// Completed is the numeric value of the Completed state.
func (sm *StateMachine) Completed() int {
	return len(sm.States) - 1
}
