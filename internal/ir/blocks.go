package ir

// EntryLabel names the first block of a function that does not start with
// a label.
const EntryLabel = "entry"

// Block is a basic block: a maximal run of instructions between labels.
// Instrs excludes the Label instruction itself.
type Block struct {
	Label  string
	Instrs []Instr
	// Start is the index in Function.Instrs of the first instruction of
	// the block, the label included.
	Start int
}

// Terminator returns the last instruction if it ends the block.
func (b *Block) Terminator() (Instr, bool) {
	if len(b.Instrs) == 0 {
		return Instr{}, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	return last, last.Op.IsTerminator()
}

// Blocks splits the instruction list at Label instructions.
func (f *Function) Blocks() []*Block {
	var blocks []*Block
	var cur *Block
	for i, in := range f.Instrs {
		if in.Op == OpLabel {
			cur = &Block{Label: in.Name, Start: i}
			blocks = append(blocks, cur)
			continue
		}
		if cur == nil {
			cur = &Block{Label: EntryLabel, Start: i}
			blocks = append(blocks, cur)
		}
		cur.Instrs = append(cur.Instrs, in)
	}
	return blocks
}

// successors returns the indices of the blocks control may reach from
// blocks[i]. A block without a terminator falls through to the next one.
func successors(blocks []*Block, index map[string]int, i int) []int {
	term, ok := blocks[i].Terminator()
	if !ok {
		if i+1 < len(blocks) {
			return []int{i + 1}
		}
		return nil
	}
	var out []int
	for _, t := range term.Targets {
		if j, ok := index[t]; ok {
			out = append(out, j)
		}
	}
	return out
}

// CFG is the control-flow graph of a function.
type CFG struct {
	Blocks []*Block
	Succs  [][]int
	Preds  [][]int
	index  map[string]int
}

// BuildCFG computes the blocks and edges of f.
func BuildCFG(f *Function) *CFG {
	g := &CFG{Blocks: f.Blocks(), index: make(map[string]int)}
	for i, b := range g.Blocks {
		if _, dup := g.index[b.Label]; !dup {
			g.index[b.Label] = i
		}
	}
	g.Succs = make([][]int, len(g.Blocks))
	g.Preds = make([][]int, len(g.Blocks))
	for i := range g.Blocks {
		g.Succs[i] = successors(g.Blocks, g.index, i)
		for _, s := range g.Succs[i] {
			g.Preds[s] = append(g.Preds[s], i)
		}
	}
	return g
}

// Lookup returns the index of the block with the given label.
func (g *CFG) Lookup(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Reachable marks the blocks reachable from the entry block.
func (g *CFG) Reachable() []bool {
	seen := make([]bool, len(g.Blocks))
	if len(g.Blocks) == 0 {
		return seen
	}
	worklist := []int{0}
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		if seen[b] {
			continue
		}
		seen[b] = true
		worklist = append(worklist, g.Succs[b]...)
	}
	return seen
}

// Dominators computes the immediate dominator of every reachable block.
// The entry block and unreachable blocks map to -1.
func (g *CFG) Dominators() []int {
	idom := make([]int, len(g.Blocks))
	done := make([]bool, len(g.Blocks))
	for i := range idom {
		idom[i] = -1
	}
	if len(g.Blocks) == 0 {
		return idom
	}
	done[0] = true

	// Iterate until convergence.
	changed := true
	for changed {
		changed = false
		for b := 1; b < len(g.Blocks); b++ {
			newDom := -1
			for _, p := range g.Preds[b] {
				if !done[p] {
					continue
				}
				if newDom == -1 {
					newDom = p
				} else {
					newDom = intersect(p, newDom, idom)
				}
			}
			if newDom != -1 && (!done[b] || newDom != idom[b]) {
				idom[b] = newDom
				done[b] = true
				changed = true
			}
		}
	}
	return idom
}

// intersect finds the nearest common dominator of two blocks.
func intersect(b1, b2 int, idom []int) int {
	onPath := make(map[int]bool)
	for cur := b1; cur != -1; cur = idom[cur] {
		onPath[cur] = true
	}
	for cur := b2; cur != -1; cur = idom[cur] {
		if onPath[cur] {
			return cur
		}
	}
	return 0
}

// Dominates reports whether block a dominates block b under idom.
func Dominates(idom []int, a, b int) bool {
	for cur := b; cur != -1; cur = idom[cur] {
		if cur == a {
			return true
		}
	}
	return false
}
