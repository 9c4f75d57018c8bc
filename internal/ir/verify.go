package ir

import "fmt"

// InternalError reports IR that violates a structural invariant. It always
// indicates a bug in the producer, never in the user's program.
type InternalError struct {
	Func string
	Msg  string
}

func (e *InternalError) Error() string {
	if e.Func == "" {
		return "internal IR error: " + e.Msg
	}
	return fmt.Sprintf("internal IR error in %s: %s", e.Func, e.Msg)
}

// Verify checks every function of m: labels are unique, branch targets
// exist, each slot is produced once and every use of a slot is dominated by
// its definition.
func Verify(m *Module) error {
	for _, fn := range m.Functions {
		if err := VerifyFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFunction checks a single function.
func VerifyFunction(fn *Function) error {
	fail := func(format string, args ...any) error {
		return &InternalError{Func: fn.Name, Msg: fmt.Sprintf(format, args...)}
	}

	labels := make(map[string]bool)
	for _, in := range fn.Instrs {
		if in.Op != OpLabel {
			continue
		}
		if labels[in.Name] {
			return fail("duplicate label %q", in.Name)
		}
		labels[in.Name] = true
	}

	g := BuildCFG(fn)
	idom := g.Dominators()
	reachable := g.Reachable()

	// defBlock maps a slot to the block that produces it.
	defBlock := make(map[Slot]int)
	for bi, b := range g.Blocks {
		for ii, in := range b.Instrs {
			if in.Op.IsTerminator() && ii != len(b.Instrs)-1 {
				return fail("%s in the middle of block %q", in.Op, b.Label)
			}
			switch in.Op {
			case OpBranch:
				if len(in.Targets) != 2 || len(in.Args) != 1 {
					return fail("malformed branch in block %q", b.Label)
				}
			case OpJump:
				if len(in.Targets) != 1 {
					return fail("malformed jump in block %q", b.Label)
				}
			case OpConst:
				if in.Value == nil {
					return fail("const without value in block %q", b.Label)
				}
			case OpBinOp:
				if len(in.Args) != 2 {
					return fail("binop %s needs 2 operands", in.Operator)
				}
			case OpUnOp:
				if len(in.Args) != 1 {
					return fail("unop %s needs 1 operand", in.Operator)
				}
			case OpLoad, OpStore, OpCall:
				if in.Name == "" {
					return fail("%s without a name in block %q", in.Op, b.Label)
				}
			}
			for _, t := range in.Targets {
				if !labels[t] {
					return fail("branch to undefined label %q", t)
				}
			}

			for _, a := range in.Args {
				db, ok := defBlock[a]
				if !ok {
					return fail("slot %%%d used before definition in block %q", a, b.Label)
				}
				if reachable[bi] && db != bi && !Dominates(idom, db, bi) {
					return fail("slot %%%d defined in %q does not dominate its use in %q",
						a, g.Blocks[db].Label, b.Label)
				}
			}
			if in.Result != 0 {
				if _, dup := defBlock[in.Result]; dup {
					return fail("slot %%%d defined twice", in.Result)
				}
				defBlock[in.Result] = bi
			}
		}
	}
	return nil
}
