package browser

import "strings"

// Scope names the document a query runs against: the top-level document or
// a chain of named frames below it. Scope is a value; Enter and Exit return
// new scopes and never modify the receiver, so a caller that keeps its
// original scope is always able to get back to it.
type Scope struct {
	frames []string
}

// Top is the top-level document.
func Top() Scope {
	return Scope{}
}

// Enter returns the scope of the frame called name inside s.
func (s Scope) Enter(name string) Scope {
	frames := make([]string, len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)
	return Scope{frames: append(frames, name)}
}

// Exit returns the parent scope. Exiting the top-level scope is a no-op.
func (s Scope) Exit() Scope {
	if len(s.frames) == 0 {
		return s
	}
	return Scope{frames: s.frames[:len(s.frames)-1]}
}

func (s Scope) IsTop() bool {
	return len(s.frames) == 0
}

// Frames returns the frame names from outermost to innermost.
func (s Scope) Frames() []string {
	out := make([]string, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s Scope) String() string {
	if s.IsTop() {
		return "top"
	}
	return "top > " + strings.Join(s.frames, " > ")
}
