package ireval

import (
	"errors"
	"fmt"
	"strconv"

	"ember/internal/ir"
)

// maxSteps bounds one top-level call so a miscompiled loop fails the test
// instead of hanging it.
const maxSteps = 1 << 20

// Thrown carries a value raised by ThrowInst.
type Thrown struct{ Value Value }

func (t *Thrown) Error() string { return "uncaught " + toString(t.Value) }

// ReferenceError is raised by a global lookup of an unknown name.
type ReferenceError struct{ Name string }

func (e *ReferenceError) Error() string { return "ReferenceError: " + e.Name + " is not defined" }

var errStepLimit = errors.New("step limit exceeded")

// Machine runs the functions of one module against a shared global
// object.
type Machine struct {
	M      *ir.Module
	Global *Object
	steps  int
}

func New(m *ir.Module) *Machine {
	return &Machine{M: m, Global: NewObject(nil)}
}

// Run executes the program function.
func (x *Machine) Run() (Value, error) {
	f := x.M.Function("global")
	if f == nil {
		return Undefined, fmt.Errorf("module has no program function")
	}
	x.steps = 0
	return x.invoke(&Closure{F: f}, Value{Kind: KindObject, Obj: x.Global}, nil)
}

// CallGlobal calls the function stored in the global property name.
func (x *Machine) CallGlobal(name string, args ...Value) (Value, error) {
	p, ok := x.Global.Own(name)
	if !ok || p.Value.Kind != KindObject || p.Value.Obj.Closure == nil {
		return Undefined, fmt.Errorf("global %q is not a function", name)
	}
	x.steps = 0
	return x.invoke(p.Value.Obj.Closure, Undefined, args)
}

// activation is the per-invocation state of one function.
type activation struct {
	fn     *Closure
	frame  *Frame
	this   Value
	args   []Value
	values map[*ir.Instr]Value
	gen    *Generator
}

func (x *Machine) invoke(c *Closure, this Value, args []Value) (Value, error) {
	if c.F.Kind == ir.FuncGenerator || c.F.Kind == ir.FuncAsync {
		if c.F.Inner == nil {
			return Undefined, fmt.Errorf("%s: suspendable function was not lowered", c.F.Name)
		}
	}
	a := &activation{
		fn:    c,
		frame: newFrame(c.F, c.Env),
		this:  this,
		args:  args,
	}
	v, suspended, err := x.exec(a)
	if err == nil && suspended {
		err = fmt.Errorf("%s: suspended outside a state machine", c.F.Name)
	}
	return v, err
}

func (x *Machine) value(a *activation, v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Instr:
		r, ok := a.values[v]
		if !ok {
			return Undefined, fmt.Errorf("%s: use of %s before its definition", a.fn.F.Name, v.Op)
		}
		return r, nil
	case *ir.Literal:
		return FromLiteral(v), nil
	case *ir.GlobalObject:
		return Value{Kind: KindObject, Obj: x.Global}, nil
	}
	return Undefined, fmt.Errorf("%s: %T is not a runtime value", a.fn.F.Name, v)
}

// exec runs the function body from its entry until it returns, throws
// or suspends.
func (x *Machine) exec(a *activation) (result Value, suspended bool, err error) {
	f := a.fn.F
	a.values = make(map[*ir.Instr]Value)
	bb := f.Entry()
	var prev *ir.Block
	for {
		next, res, done, susp, err := x.block(a, bb, prev)
		if err != nil {
			return Undefined, false, err
		}
		if done {
			return res, susp, nil
		}
		prev, bb = bb, next
	}
}

// block runs one basic block and reports where control goes next.
func (x *Machine) block(a *activation, bb, prev *ir.Block) (next *ir.Block, res Value, done, suspended bool, err error) {
	// Phis read their inputs simultaneously on block entry.
	phis := bb.Phis()
	incoming := make([]Value, len(phis))
	for i, phi := range phis {
		found := false
		for n := range phi.NumIncoming() {
			v, from := phi.Incoming(n)
			if from == prev {
				if incoming[i], err = x.value(a, v); err != nil {
					return nil, Undefined, false, false, err
				}
				found = true
				break
			}
		}
		if !found {
			return nil, Undefined, false, false, fmt.Errorf("%s: phi has no entry for the predecessor", a.fn.F.Name)
		}
	}
	for i, phi := range phis {
		a.values[phi] = incoming[i]
	}

	for _, in := range bb.Instrs[len(phis):] {
		x.steps++
		if x.steps > maxSteps {
			return nil, Undefined, false, false, errStepLimit
		}
		switch in.Op {
		case ir.BranchInst:
			return in.Operands[0].(*ir.Block), Undefined, false, false, nil
		case ir.CondBranchInst:
			c, err := x.value(a, in.Operands[0])
			if err != nil {
				return nil, Undefined, false, false, err
			}
			if truthy(c) {
				return in.Operands[1].(*ir.Block), Undefined, false, false, nil
			}
			return in.Operands[2].(*ir.Block), Undefined, false, false, nil
		case ir.SwitchInst:
			v, err := x.value(a, in.Operands[0])
			if err != nil {
				return nil, Undefined, false, false, err
			}
			for n := 2; n+1 < len(in.Operands); n += 2 {
				c, err := x.value(a, in.Operands[n])
				if err != nil {
					return nil, Undefined, false, false, err
				}
				if strictEqual(v, c) {
					return in.Operands[n+1].(*ir.Block), Undefined, false, false, nil
				}
			}
			return in.Operands[1].(*ir.Block), Undefined, false, false, nil
		case ir.ReturnInst, ir.SuspendInst:
			v, err := x.value(a, in.Operands[0])
			if err != nil {
				return nil, Undefined, false, false, err
			}
			return nil, v, true, in.Op == ir.SuspendInst, nil
		case ir.ThrowInst:
			v, err := x.value(a, in.Operands[0])
			if err != nil {
				return nil, Undefined, false, false, err
			}
			return nil, Undefined, false, false, &Thrown{Value: v}
		}
		v, err := x.instr(a, in)
		if err != nil {
			return nil, Undefined, false, false, err
		}
		if in.Op.HasValue() {
			a.values[in] = v
		}
	}
	return nil, Undefined, false, false, fmt.Errorf("%s: block has no terminator", a.fn.F.Name)
}

func (x *Machine) operands(a *activation, in *ir.Instr, from int) ([]Value, error) {
	out := make([]Value, 0, len(in.Operands)-from)
	for _, op := range in.Operands[from:] {
		v, err := x.value(a, op)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// instr executes a non-terminator instruction.
func (x *Machine) instr(a *activation, in *ir.Instr) (Value, error) {
	switch in.Op {
	case ir.LoadParamInst:
		p := in.Operands[0].(*ir.Param)
		if p.Index < 0 {
			return a.this, nil
		}
		if p.Index < len(a.args) {
			return a.args[p.Index], nil
		}
		return Undefined, nil
	case ir.LoadFrameInst:
		slot := in.Operands[0].(*ir.Variable)
		fr, err := a.frame.owner(slot)
		if err != nil {
			return Undefined, err
		}
		if v, ok := fr.Slots[slot]; ok {
			return v, nil
		}
		return Undefined, nil
	case ir.StoreFrameInst:
		v, err := x.value(a, in.Operands[0])
		if err != nil {
			return Undefined, err
		}
		slot := in.Operands[1].(*ir.Variable)
		fr, err := a.frame.owner(slot)
		if err != nil {
			return Undefined, err
		}
		fr.Slots[slot] = v
		return Undefined, nil
	case ir.CreateFunctionInst:
		return x.closure(in.Operands[0].(*ir.Function), a.frame), nil
	case ir.CreateGeneratorInst:
		return x.generator(in.Operands[0].(*ir.Function), a), nil
	case ir.GetGeneratorStateInst, ir.SetGeneratorStateInst, ir.ResumeValueInst, ir.IsForceReturnInst:
		return x.machineOp(a, in)
	case ir.YieldInst, ir.AwaitInst:
		return Undefined, fmt.Errorf("%s: %s was not lowered", a.fn.F.Name, in.Op)
	case ir.CallBuiltinInst:
		args, err := x.operands(a, in, 2)
		if err != nil {
			return Undefined, err
		}
		return x.builtin(in.Operands[0].(*ir.Builtin).Name, args)
	}

	ops, err := x.operands(a, in, 0)
	if err != nil {
		return Undefined, err
	}
	switch in.Op {
	case ir.BinaryOperatorInst, ir.NumericBinaryOperatorInst:
		return Binary(in.Operator, ops[0], ops[1])
	case ir.UnaryOperatorInst:
		return Unary(in.Operator, ops[0])
	case ir.AsNumberInst:
		return AsNumber(ops[0])
	case ir.AsInt32Inst:
		return Binary("|", ops[0], Number(0))
	case ir.CoerceThisNSInst:
		if nullish(ops[0]) {
			return Value{Kind: KindObject, Obj: x.Global}, nil
		}
		return ops[0], nil
	case ir.LoadPropertyInst:
		return x.getProperty(ops[0], ops[1])
	case ir.TryLoadGlobalPropertyInst:
		name := propertyKey(ops[1])
		if _, ok := x.Global.lookup(name); !ok {
			return Undefined, &ReferenceError{Name: name}
		}
		return x.getProperty(ops[0], ops[1])
	case ir.StorePropertyLooseInst:
		return Undefined, x.setProperty(ops[1], ops[2], ops[0])
	case ir.DeclareGlobalVarInst:
		name := propertyKey(ops[0])
		if _, ok := x.Global.Own(name); !ok {
			x.Global.define(name, Property{Value: Undefined})
		}
		return Undefined, nil
	case ir.DeletePropertyLooseInst:
		if ops[0].Kind != KindObject {
			if nullish(ops[0]) {
				return Undefined, typeErrorf("cannot delete a property of %s", toString(ops[0]))
			}
			return Bool(true), nil
		}
		ops[0].Obj.remove(propertyKey(ops[1]))
		return Bool(true), nil
	case ir.AllocObjectInst:
		return Value{Kind: KindObject, Obj: NewObject(protoOf(ops[1]))}, nil
	case ir.AllocObjectLiteralInst:
		obj := NewObject(nil)
		for n := 0; n+1 < len(ops); n += 2 {
			obj.define(propertyKey(ops[n]), Property{Value: ops[n+1]})
		}
		return Value{Kind: KindObject, Obj: obj}, nil
	case ir.AllocArrayInst:
		obj := NewObject(nil)
		for i, v := range ops[1:] {
			if v.Kind != KindEmpty {
				obj.define(strconv.Itoa(i), Property{Value: v})
			}
		}
		obj.define("length", Property{Value: Number(float64(len(ops) - 1))})
		return Value{Kind: KindObject, Obj: obj}, nil
	case ir.StoreNewOwnPropertyInst, ir.StoreOwnPropertyInst:
		if ops[1].Kind != KindObject {
			return Undefined, typeErrorf("own property store on %s", typeOf(ops[1]))
		}
		ops[1].Obj.define(propertyKey(ops[2]), Property{Value: ops[0]})
		return Undefined, nil
	case ir.StoreGetterSetterInst:
		if ops[2].Kind != KindObject {
			return Undefined, typeErrorf("accessor store on %s", typeOf(ops[2]))
		}
		ops[2].Obj.define(propertyKey(ops[3]), Property{Getter: ops[0], Setter: ops[1], Accessor: true})
		return Undefined, nil
	case ir.CallInst, ir.ConstructInst:
		return x.call(ops[0], ops[1], ops[2:])
	}
	return Undefined, fmt.Errorf("%s: cannot execute %s", a.fn.F.Name, in.Op)
}

func protoOf(v Value) *Object {
	if v.Kind == KindObject {
		return v.Obj
	}
	return nil
}

func (x *Machine) closure(f *ir.Function, env *Frame) Value {
	obj := NewObject(nil)
	obj.Closure = &Closure{F: f, Env: env}
	obj.define("prototype", Property{Value: Value{Kind: KindObject, Obj: NewObject(nil)}})
	return Value{Kind: KindObject, Obj: obj}
}

func (x *Machine) call(callee, this Value, args []Value) (Value, error) {
	if callee.Kind != KindObject || callee.Obj.Closure == nil {
		return Undefined, typeErrorf("%s is not a function", toString(callee))
	}
	return x.invoke(callee.Obj.Closure, this, args)
}

func (x *Machine) getProperty(obj, key Value) (Value, error) {
	name := propertyKey(key)
	switch obj.Kind {
	case KindObject:
	case KindString:
		if name == "length" {
			return Number(float64(len([]rune(obj.Str)))), nil
		}
		return Undefined, nil
	case KindUndefined, KindNull, KindEmpty:
		return Undefined, typeErrorf("cannot read property %q of %s", name, toString(obj))
	default:
		return Undefined, nil
	}
	p, ok := obj.Obj.lookup(name)
	if !ok {
		return Undefined, nil
	}
	if p.Accessor {
		if p.Getter.Kind == KindUndefined {
			return Undefined, nil
		}
		return x.call(p.Getter, obj, nil)
	}
	return p.Value, nil
}

// setProperty is a loose store: writes to primitives are dropped.
func (x *Machine) setProperty(obj, key, v Value) error {
	name := propertyKey(key)
	switch obj.Kind {
	case KindObject:
	case KindUndefined, KindNull, KindEmpty:
		return typeErrorf("cannot set property %q of %s", name, toString(obj))
	default:
		return nil
	}
	if p, ok := obj.Obj.lookup(name); ok && p.Accessor {
		if p.Setter.Kind == KindUndefined {
			return nil
		}
		_, err := x.call(p.Setter, obj, []Value{v})
		return err
	}
	if p, ok := obj.Obj.Own(name); ok {
		p.Value = v
		return nil
	}
	obj.Obj.define(name, Property{Value: v})
	return nil
}

func (x *Machine) builtin(name string, args []Value) (Value, error) {
	switch name {
	case ir.BuiltinSilentSetPrototypeOf:
		if len(args) == 2 && args[0].Kind == KindObject {
			switch args[1].Kind {
			case KindObject:
				args[0].Obj.Proto = args[1].Obj
			case KindNull:
				args[0].Obj.Proto = nil
			}
		}
		return Undefined, nil
	case ir.BuiltinSpawnAsync:
		if len(args) != 1 || args[0].Kind != KindObject || args[0].Obj.Gen == nil {
			return Undefined, typeErrorf("spawnAsync expects a state machine")
		}
		return args[0].Obj.Gen.drain()
	}
	return Undefined, fmt.Errorf("unknown builtin %q", name)
}
