package ireval

import (
	"fmt"

	"ember/internal/ir"
)

// Generator drives a lowered state machine. Its frame outlives every
// single resumption; SSA values do not.
type Generator struct {
	x     *Machine
	fn    *Closure
	frame *Frame
	this  Value
	args  []Value

	state  int
	resume Value
	force  bool
}

func (x *Machine) generator(inner *ir.Function, a *activation) Value {
	g := &Generator{
		x:     x,
		fn:    &Closure{F: inner, Env: a.fn.Env},
		frame: newFrame(inner, a.fn.Env),
		this:  a.this,
		args:  a.args,
	}
	obj := NewObject(nil)
	obj.Gen = g
	return Value{Kind: KindObject, Obj: obj}
}

// State is the machine's current state number.
func (g *Generator) State() int { return g.state }

// Done reports whether the machine reached its completed state.
func (g *Generator) Done() bool {
	return g.state == g.fn.F.StateMachine.Completed()
}

// Resume runs the machine until its next suspension or completion. The
// value is what the pending yield or await evaluates to.
func (g *Generator) Resume(v Value) (Value, bool, error) {
	return g.run(v, false)
}

// ForceReturn completes the machine from whatever state it is in, the
// way return() does on a generator object.
func (g *Generator) ForceReturn(v Value) (Value, bool, error) {
	return g.run(v, true)
}

func (g *Generator) run(v Value, force bool) (Value, bool, error) {
	if g.Done() {
		if force {
			return v, true, nil
		}
		return Undefined, true, nil
	}
	g.resume, g.force = v, force
	a := &activation{
		fn:    g.fn,
		frame: g.frame,
		this:  g.this,
		args:  g.args,
		gen:   g,
	}
	res, suspended, err := g.x.exec(a)
	if err != nil {
		g.state = g.fn.F.StateMachine.Completed()
		return Undefined, true, err
	}
	return res, !suspended, nil
}

// drain resumes the machine with each suspended value until it
// completes. It stands in for the async scheduler.
func (g *Generator) drain() (Value, error) {
	v := Undefined
	for {
		res, done, err := g.Resume(v)
		if err != nil {
			return Undefined, err
		}
		if done {
			return res, nil
		}
		v = res
	}
}

func (x *Machine) machineOp(a *activation, in *ir.Instr) (Value, error) {
	g := a.gen
	if g == nil {
		return Undefined, fmt.Errorf("%s: %s outside a state machine", a.fn.F.Name, in.Op)
	}
	switch in.Op {
	case ir.GetGeneratorStateInst:
		return Number(float64(g.state)), nil
	case ir.SetGeneratorStateInst:
		s, err := x.value(a, in.Operands[0])
		if err != nil {
			return Undefined, err
		}
		g.state = int(toNumber(s))
		return Undefined, nil
	case ir.ResumeValueInst:
		return g.resume, nil
	}
	return Bool(g.force), nil
}
