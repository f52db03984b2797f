package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ember/internal/ast"
	"ember/internal/types"
)

// Dump writes the textual form of every function in creation order,
// separated by blank lines:
//
//	function foo(dim): number
//	frame = []
//	%BB0:
//	  %0 = LoadParamInst %dim : any
//	  %1 = BinaryOperatorInst '==', %0, %0 : boolean
//	  %2 = ReturnInst %1
func Dump(w io.Writer, m *Module) error {
	for i, f := range m.Functions {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := DumpFunction(w, f); err != nil {
			return err
		}
	}
	return nil
}

// String renders the whole module; handy in tests.
func (m *Module) String() string {
	var b strings.Builder
	_ = Dump(&b, m)
	return b.String()
}

type printer struct {
	f      *Function
	blocks map[*Block]int
	instrs map[*Instr]int
	b      strings.Builder
}

// DumpFunction writes one function. Instructions and blocks are numbered
// in block order, so numbering is deterministic.
func DumpFunction(w io.Writer, f *Function) error {
	p := &printer{
		f:      f,
		blocks: make(map[*Block]int, len(f.Blocks)),
		instrs: make(map[*Instr]int),
	}
	n := 0
	for i, bb := range f.Blocks {
		p.blocks[bb] = i
		for _, in := range bb.Instrs {
			p.instrs[in] = n
			n++
		}
	}
	p.function()
	_, err := io.WriteString(w, p.b.String())
	return err
}

func (p *printer) typeName(id types.TypeID) string {
	if id == types.NoTypeID {
		return "<none>"
	}
	return p.f.Module.Types.String(id)
}

func (p *printer) function() {
	f := p.f
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = prm.Name
	}
	fmt.Fprintf(&p.b, "function %s(%s): %s\n", f.Name, strings.Join(params, ", "), p.typeName(f.ReturnType))
	slots := make([]string, len(f.Frame))
	for i, v := range f.Frame {
		slots[i] = v.Name
	}
	fmt.Fprintf(&p.b, "frame = [%s]\n", strings.Join(slots, ", "))
	if sm := f.StateMachine; sm != nil {
		states := make([]string, len(sm.States))
		for i, s := range sm.States {
			states[i] = fmt.Sprintf("%s -> %s", s, p.blockRef(s.Block))
		}
		fmt.Fprintf(&p.b, "states = [%s]\n", strings.Join(states, ", "))
	}
	for _, bb := range f.Blocks {
		fmt.Fprintf(&p.b, "%s:\n", p.blockRef(bb))
		for _, in := range bb.Instrs {
			p.instr(in)
		}
	}
}

func (p *printer) blockRef(bb *Block) string {
	if n, ok := p.blocks[bb]; ok {
		return "%BB" + strconv.Itoa(n)
	}
	return "%BB?"
}

func (p *printer) instr(in *Instr) {
	fmt.Fprintf(&p.b, "  %%%d = %s", p.instrs[in], in.Op)
	var ops []string
	if in.Operator != "" {
		ops = append(ops, "'"+in.Operator+"'")
	}
	for _, op := range in.Operands {
		ops = append(ops, p.operand(op))
	}
	if len(ops) > 0 {
		p.b.WriteByte(' ')
		p.b.WriteString(strings.Join(ops, ", "))
	}
	if in.Op.HasValue() {
		p.b.WriteString(" : ")
		p.b.WriteString(p.typeName(in.Result))
	}
	p.b.WriteByte('\n')
}

func (p *printer) operand(v Value) string {
	switch v := v.(type) {
	case *Instr:
		if n, ok := p.instrs[v]; ok {
			return "%" + strconv.Itoa(n)
		}
		return "%<detached " + v.Op.String() + ">"
	case *Literal:
		return LiteralString(v)
	case *Variable:
		if v.Func != p.f {
			return "[" + v.Name + "@" + v.Func.Name + "]"
		}
		return "[" + v.Name + "]"
	case *Param:
		return "%" + v.Name
	case *Block:
		return p.blockRef(v)
	case *Function:
		return "%" + v.Name + "()"
	case *GlobalObject:
		return "globalObject"
	case *Builtin:
		return "[" + v.Name + "]"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", v)
}

// LiteralString renders a literal the way dumps show it.
func LiteralString(l *Literal) string {
	switch l.Kind {
	case LitUndefined:
		return "undefined"
	case LitNull:
		return "null"
	case LitEmpty:
		return "empty"
	case LitBool:
		return strconv.FormatBool(l.Bool)
	case LitNumber:
		return ast.NumberToString(l.Num)
	case LitString:
		return strconv.Quote(l.Str)
	case LitBigInt:
		return l.Str + "n"
	}
	return "<literal>"
}
