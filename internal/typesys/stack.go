package typesys

// StackEffect returns how many values op pops and pushes given its operand.
// ret is reported with ret as the method's return type, nil elsewhere.
func StackEffect(op OpCode, operand any) (pop, push int) {
	if !op.Valid() {
		return 0, 0
	}
	info := opTable[op]
	pop, push = int(info.pop), int(info.push)
	switch op {
	case OpCall, OpCallvirt:
		m, ok := operand.(MethodInfo)
		if !ok {
			// A base constructor call pops the receiver and returns nothing.
			if c, isCtor := operand.(ConstructorInfo); isCtor && op == OpCall {
				return len(c.ParameterTypes()) + 1, 0
			}
			return 0, 0
		}
		pop = len(m.ParameterTypes())
		if !m.IsStatic() {
			pop++
		}
		push = 0
		if !IsVoid(m.ReturnType()) {
			push = 1
		}
	case OpNewobj:
		c, ok := operand.(ConstructorInfo)
		if !ok {
			return 0, 1
		}
		pop = len(c.ParameterTypes())
	case OpRet:
		pop = 0
		if t, ok := operand.(Type); ok && t != nil && !IsVoid(t) {
			pop = 1
		}
	}
	return pop, push
}

// Terminates reports whether control never falls through op.
func Terminates(op OpCode) bool {
	return op == OpRet || op == OpBr
}
