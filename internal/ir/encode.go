package ir

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/source"
	"ember/internal/types"
)

// handoffSchema is bumped whenever the wire layout below changes.
const handoffSchema uint16 = 1

// The handoff format flattens the pointer graph into indices: operands
// name instructions by their position in the function (block order),
// blocks and parameters by position, slots by owner function and
// position.
type wireModule struct {
	Schema    uint16        `msgpack:"schema"`
	Types     []types.Entry `msgpack:"types"`
	Functions []wireFunc    `msgpack:"functions"`
}

type wireFunc struct {
	Name       string       `msgpack:"name"`
	Kind       FunctionKind `msgpack:"kind"`
	Strict     bool         `msgpack:"strict,omitempty"`
	Params     []string     `msgpack:"params"`
	ReturnType types.TypeID `msgpack:"ret"`
	Frame      []wireSlot   `msgpack:"frame"`
	Parent     int          `msgpack:"parent"`
	EnvParent  bool         `msgpack:"env,omitempty"`
	Inner      int          `msgpack:"inner"`
	Blocks     []wireBlock  `msgpack:"blocks"`
	States     []wireState  `msgpack:"states,omitempty"`
	Span       wireSpan     `msgpack:"span"`
}

type wireSlot struct {
	Name     string `msgpack:"name"`
	Captured bool   `msgpack:"captured,omitempty"`
}

type wireBlock struct {
	Instrs []wireInstr `msgpack:"instrs"`
}

type wireInstr struct {
	Op       string        `msgpack:"op"`
	Operator string        `msgpack:"operator,omitempty"`
	Type     types.TypeID  `msgpack:"type,omitempty"`
	Operands []wireOperand `msgpack:"operands,omitempty"`
	Span     wireSpan      `msgpack:"span"`
}

type wireSpan struct {
	File  source.FileID `msgpack:"f"`
	Start uint32        `msgpack:"s"`
	End   uint32        `msgpack:"e"`
}

type operandKind uint8

const (
	operandInstr operandKind = iota
	operandLiteral
	operandSlot
	operandParam
	operandBlock
	operandFunction
	operandGlobal
	operandBuiltin
)

type wireOperand struct {
	Kind  operandKind `msgpack:"k"`
	Index int         `msgpack:"i,omitempty"`
	Func  int         `msgpack:"fn,omitempty"`
	Lit   *wireLit    `msgpack:"lit,omitempty"`
	Name  string      `msgpack:"name,omitempty"`
}

type wireLit struct {
	Kind LiteralKind `msgpack:"k"`
	Num  float64     `msgpack:"n,omitempty"`
	Str  string      `msgpack:"s,omitempty"`
	Bool bool        `msgpack:"b,omitempty"`
}

type wireState struct {
	Kind  StateKind `msgpack:"k"`
	Site  int       `msgpack:"site,omitempty"`
	Block int       `msgpack:"block"`
}

// Encode writes m in the handoff format.
func Encode(w io.Writer, m *Module) error {
	funcIndex := make(map[*Function]int, len(m.Functions))
	for i, f := range m.Functions {
		funcIndex[f] = i
	}
	wm := wireModule{
		Schema: handoffSchema,
		Types:  m.Types.Entries(),
	}
	for _, f := range m.Functions {
		wf, err := encodeFunc(f, funcIndex)
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Name, err)
		}
		wm.Functions = append(wm.Functions, wf)
	}
	return msgpack.NewEncoder(w).Encode(&wm)
}

func indexOf(funcs map[*Function]int, f *Function) int {
	if f == nil {
		return -1
	}
	return funcs[f]
}

func encodeFunc(f *Function, funcs map[*Function]int) (wireFunc, error) {
	wf := wireFunc{
		Name:       f.Name,
		Kind:       f.Kind,
		Strict:     f.Strict,
		ReturnType: f.ReturnType,
		Parent:     indexOf(funcs, f.Parent),
		EnvParent:  f.EnvParent,
		Inner:      indexOf(funcs, f.Inner),
		Span:       wireSpan(f.Span),
	}
	for _, p := range f.Params {
		wf.Params = append(wf.Params, p.Name)
	}
	for _, v := range f.Frame {
		wf.Frame = append(wf.Frame, wireSlot{Name: v.Name, Captured: v.Captured})
	}
	blocks := make(map[*Block]int, len(f.Blocks))
	instrs := make(map[*Instr]int)
	n := 0
	for i, bb := range f.Blocks {
		blocks[bb] = i
		for _, in := range bb.Instrs {
			instrs[in] = n
			n++
		}
	}
	for _, bb := range f.Blocks {
		var wb wireBlock
		for _, in := range bb.Instrs {
			wi := wireInstr{
				Op:       in.Op.String(),
				Operator: in.Operator,
				Type:     in.Result,
				Span:     wireSpan(in.Span),
			}
			for _, op := range in.Operands {
				wo, err := encodeOperand(op, funcs, blocks, instrs)
				if err != nil {
					return wf, fmt.Errorf("%s: %w", in.Op, err)
				}
				wi.Operands = append(wi.Operands, wo)
			}
			wb.Instrs = append(wb.Instrs, wi)
		}
		wf.Blocks = append(wf.Blocks, wb)
	}
	if sm := f.StateMachine; sm != nil {
		for _, s := range sm.States {
			wf.States = append(wf.States, wireState{Kind: s.Kind, Site: s.Site, Block: blocks[s.Block]})
		}
	}
	return wf, nil
}

func encodeOperand(v Value, funcs map[*Function]int, blocks map[*Block]int, instrs map[*Instr]int) (wireOperand, error) {
	switch v := v.(type) {
	case *Instr:
		n, ok := instrs[v]
		if !ok {
			return wireOperand{}, fmt.Errorf("operand %s is not in the function", v.Op)
		}
		return wireOperand{Kind: operandInstr, Index: n}, nil
	case *Literal:
		return wireOperand{Kind: operandLiteral, Lit: &wireLit{Kind: v.Kind, Num: v.Num, Str: v.Str, Bool: v.Bool}}, nil
	case *Variable:
		idx := -1
		for i, s := range v.Func.Frame {
			if s == v {
				idx = i
			}
		}
		if idx < 0 {
			return wireOperand{}, fmt.Errorf("slot %s is not in the frame of %s", v.Name, v.Func.Name)
		}
		return wireOperand{Kind: operandSlot, Index: idx, Func: funcs[v.Func]}, nil
	case *Param:
		return wireOperand{Kind: operandParam, Index: v.Index}, nil
	case *Block:
		return wireOperand{Kind: operandBlock, Index: blocks[v]}, nil
	case *Function:
		return wireOperand{Kind: operandFunction, Index: funcs[v]}, nil
	case *GlobalObject:
		return wireOperand{Kind: operandGlobal}, nil
	case *Builtin:
		return wireOperand{Kind: operandBuiltin, Name: v.Name}, nil
	}
	return wireOperand{}, fmt.Errorf("unsupported operand %T", v)
}

var errSchema = errors.New("ir: unsupported handoff schema")

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*Module, error) {
	var wm wireModule
	if err := msgpack.NewDecoder(r).Decode(&wm); err != nil {
		return nil, fmt.Errorf("ir: decode: %w", err)
	}
	if wm.Schema != handoffSchema {
		return nil, fmt.Errorf("%w %d", errSchema, wm.Schema)
	}
	tab, err := types.FromEntries(wm.Types)
	if err != nil {
		return nil, err
	}
	m := NewModule(tab)
	funcs := make([]*Function, len(wm.Functions))
	for i, wf := range wm.Functions {
		f := m.NewFunction(wf.Name, wf.Kind, nil)
		f.Strict = wf.Strict
		f.ReturnType = wf.ReturnType
		f.EnvParent = wf.EnvParent
		f.Span = source.Span(wf.Span)
		for _, p := range wf.Params {
			f.AddParam(p)
		}
		for _, s := range wf.Frame {
			f.AddVariable(s.Name).Captured = s.Captured
		}
		funcs[i] = f
	}
	fn := func(i int) (*Function, error) {
		if i < 0 || i >= len(funcs) {
			return nil, fmt.Errorf("ir: decode: function index %d out of range", i)
		}
		return funcs[i], nil
	}
	for i, wf := range wm.Functions {
		f := funcs[i]
		if wf.Parent >= 0 {
			if f.Parent, err = fn(wf.Parent); err != nil {
				return nil, err
			}
		}
		if wf.Inner >= 0 {
			if f.Inner, err = fn(wf.Inner); err != nil {
				return nil, err
			}
		}
	}
	for i, wf := range wm.Functions {
		if err := decodeBody(m, funcs[i], wf, fn); err != nil {
			return nil, fmt.Errorf("ir: decode %s: %w", wf.Name, err)
		}
	}
	return m, nil
}

func decodeBody(m *Module, f *Function, wf wireFunc, fn func(int) (*Function, error)) error {
	var all []*Instr
	for _, wb := range wf.Blocks {
		bb := f.NewBlock()
		for _, wi := range wb.Instrs {
			op, ok := OpcodeByName(wi.Op)
			if !ok {
				return fmt.Errorf("unknown opcode %q", wi.Op)
			}
			in := NewInstr(op, wi.Operator, wi.Type, source.Span(wi.Span))
			bb.Append(in)
			all = append(all, in)
		}
	}
	n := 0
	for _, wb := range wf.Blocks {
		for _, wi := range wb.Instrs {
			in := all[n]
			n++
			for _, wo := range wi.Operands {
				v, err := decodeOperand(m, f, wo, all, fn)
				if err != nil {
					return fmt.Errorf("%s: %w", in.Op, err)
				}
				in.Operands = append(in.Operands, v)
			}
		}
	}
	if len(wf.States) > 0 {
		sm := &StateMachine{}
		for _, ws := range wf.States {
			if ws.Block < 0 || ws.Block >= len(f.Blocks) {
				return fmt.Errorf("state block %d out of range", ws.Block)
			}
			sm.States = append(sm.States, State{Kind: ws.Kind, Site: ws.Site, Block: f.Blocks[ws.Block]})
		}
		f.StateMachine = sm
	}
	return nil
}

func decodeOperand(m *Module, f *Function, wo wireOperand, all []*Instr, fn func(int) (*Function, error)) (Value, error) {
	switch wo.Kind {
	case operandInstr:
		if wo.Index < 0 || wo.Index >= len(all) {
			return nil, fmt.Errorf("instruction %d out of range", wo.Index)
		}
		return all[wo.Index], nil
	case operandLiteral:
		if wo.Lit == nil {
			return nil, errors.New("literal operand without payload")
		}
		return decodeLiteral(m, *wo.Lit), nil
	case operandSlot:
		owner, err := fn(wo.Func)
		if err != nil {
			return nil, err
		}
		if wo.Index < 0 || wo.Index >= len(owner.Frame) {
			return nil, fmt.Errorf("slot %d of %s out of range", wo.Index, owner.Name)
		}
		return owner.Frame[wo.Index], nil
	case operandParam:
		if wo.Index == -1 {
			return f.This, nil
		}
		if wo.Index < 0 || wo.Index >= len(f.Params) {
			return nil, fmt.Errorf("parameter %d out of range", wo.Index)
		}
		return f.Params[wo.Index], nil
	case operandBlock:
		if wo.Index < 0 || wo.Index >= len(f.Blocks) {
			return nil, fmt.Errorf("block %d out of range", wo.Index)
		}
		return f.Blocks[wo.Index], nil
	case operandFunction:
		return fn(wo.Index)
	case operandGlobal:
		return m.Global(), nil
	case operandBuiltin:
		return m.Builtin(wo.Name), nil
	}
	return nil, fmt.Errorf("unknown operand kind %d", wo.Kind)
}

func decodeLiteral(m *Module, l wireLit) *Literal {
	switch l.Kind {
	case LitNull:
		return m.Null()
	case LitBool:
		return m.Bool(l.Bool)
	case LitNumber:
		return m.Number(l.Num)
	case LitString:
		return m.Str(l.Str)
	case LitBigInt:
		return m.BigInt(l.Str)
	case LitEmpty:
		return m.Empty()
	}
	return m.Undefined()
}
