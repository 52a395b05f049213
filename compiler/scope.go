package compiler

// MaxLocals is the number of local slots addressable by an 8-bit operand.
const MaxLocals = 256

// Local is a named stack slot introduced by let or fn.
type Local struct {
	Name  string
	Depth int // lexical block depth that owns the slot

	// Captured marks a slot referenced by a nested function. Function
	// bodies are never compiled, so it stays false.
	Captured bool
}

// scope tracks the locals visible at the current point of generation. A
// local's slot is its index in the table.
type scope struct {
	locals []Local
	depth  int
}

func newScope() *scope {
	return &scope{locals: make([]Local, 0, MaxLocals)}
}

func (s *scope) begin() {
	s.depth++
}

// end closes the innermost block and returns how many locals it dropped.
func (s *scope) end() int {
	s.depth--
	n := 0
	for len(s.locals) > 0 && s.locals[len(s.locals)-1].Depth > s.depth {
		s.locals = s.locals[:len(s.locals)-1]
		n++
	}
	return n
}

// declaredHere reports whether name already exists at the current depth.
func (s *scope) declaredHere(name string) bool {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].Depth != s.depth {
			break
		}
		if s.locals[i].Name == name {
			return true
		}
	}
	return false
}

func (s *scope) add(name string) int {
	s.locals = append(s.locals, Local{Name: name, Depth: s.depth})
	return len(s.locals) - 1
}

// resolve returns the slot of the innermost local called name, or -1.
func (s *scope) resolve(name string) int {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].Name == name {
			return i
		}
	}
	return -1
}
