package x64

// allocator simulates the VM's operand stack at compile time (§4.F
// "Virtual operand stack"): each VM push allocates a free pool register or,
// once the pool is empty, a fresh spill slot beyond the function's locals;
// each VM pop releases the operand back to the pool (registers) or shrinks
// the spill area (slots), since both grow and shrink in the same LIFO order
// as the real operand stack.
type allocator struct {
	pool  []Reg
	stack []operand

	nslots   int // frame slots reserved for args+locals; spills start here
	nextSlot int // next spill slot index to hand out
	maxSlot  int // high-water mark of nextSlot, i.e. frame slots needed
}

func newAllocator(nslots int) *allocator {
	pool := make([]Reg, len(poolRegs))
	copy(pool, poolRegs)
	return &allocator{pool: pool, nslots: nslots, nextSlot: nslots, maxSlot: nslots}
}

// allocate reserves a fresh operand (register if the pool has one, else a
// new spill slot), pushes it onto the virtual stack, and returns it.
func (a *allocator) allocate() operand {
	var op operand
	if len(a.pool) > 0 {
		op = a.pool[len(a.pool)-1]
		a.pool = a.pool[:len(a.pool)-1]
	} else {
		op = memSlot{a.nextSlot}
		a.nextSlot++
		if a.nextSlot > a.maxSlot {
			a.maxSlot = a.nextSlot
		}
	}
	a.stack = append(a.stack, op)
	return op
}

// push records an already-computed operand as the new top of the virtual
// stack, removing it from the free pool if it was a pool register (used
// when a result is written back into the operand it was computed from).
func (a *allocator) push(op operand) {
	if r, ok := isReg(op); ok {
		for i, p := range a.pool {
			if p == r {
				a.pool = append(a.pool[:i], a.pool[i+1:]...)
				break
			}
		}
	}
	a.stack = append(a.stack, op)
}

// pop removes and returns the virtual stack's top operand, releasing a
// register back to the pool or shrinking the spill area.
func (a *allocator) pop() operand {
	n := len(a.stack)
	op := a.stack[n-1]
	a.stack = a.stack[:n-1]
	switch v := op.(type) {
	case Reg:
		a.pool = append(a.pool, v)
	case memSlot:
		a.nextSlot--
	}
	return op
}

// top returns the virtual stack's current top without popping it.
func (a *allocator) top() operand { return a.stack[len(a.stack)-1] }

// registersOnStack returns every register currently live on the virtual
// stack, excluding its top n operands (the ones about to be consumed by a
// call), in stack order.
func (a *allocator) registersOnStack(excludeTop int) []Reg {
	var regs []Reg
	n := len(a.stack) - excludeTop
	if n < 0 {
		n = 0
	}
	for _, op := range a.stack[:n] {
		if r, ok := isReg(op); ok {
			regs = append(regs, r)
		}
	}
	return regs
}
