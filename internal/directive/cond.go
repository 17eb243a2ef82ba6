package directive

import (
	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/fwessels/cpp/internal/token"
)

// condStack tracks the open #if groups of one run.
type condStack struct {
	frames *arraystack.Stack
}

type condFrame struct {
	name         string // directive that opened the group
	pos          token.Pos
	parentActive bool
	taken        bool
	active       bool
	sawElse      bool
}

func newCondStack() *condStack { return &condStack{frames: arraystack.New()} }
func (c *condStack) Depth() int { return c.frames.Size() }

func (c *condStack) top() *condFrame {
	v, ok := c.frames.Peek()
	if !ok {
		return nil
	}
	return v.(*condFrame)
}

// Active reports whether tokens at the current point reach the output.
func (c *condStack) Active() bool {
	if top := c.top(); top != nil {
		return top.active
	}
	return true
}

// Live reports whether the innermost group sits in active code, so that
// its #elif and #else lines are examined.
func (c *condStack) Live() bool {
	if top := c.top(); top != nil {
		return top.parentActive
	}
	return true
}

// Push opens a group. cond is ignored when the enclosing code is inactive.
func (c *condStack) Push(name string, cond bool, pos token.Pos) {
	parent := c.Active()
	active := parent && cond
	c.frames.Push(&condFrame{
		name:         name,
		pos:          pos,
		parentActive: parent,
		taken:        active,
		active:       active,
	})
}

// NeedsElif reports whether the condition of an #elif must be evaluated:
// the group is live and no earlier branch was taken.
func (c *condStack) NeedsElif() bool {
	top := c.top()
	return top != nil && top.parentActive && !top.taken && !top.sawElse
}

func (c *condStack) Elif(cond bool, pos token.Pos) error {
	top := c.top()
	switch {
	case top == nil:
		return token.Errorf(token.ConditionalNestingError, pos, "#elif without #if")
	case top.sawElse:
		return token.Errorf(token.ConditionalNestingError, pos, "#elif after #else")
	}
	top.active = top.parentActive && !top.taken && cond
	top.taken = top.taken || top.active
	return nil
}

func (c *condStack) Else(pos token.Pos) error {
	top := c.top()
	switch {
	case top == nil:
		return token.Errorf(token.ConditionalNestingError, pos, "#else without #if")
	case top.sawElse:
		return token.Errorf(token.ConditionalNestingError, pos, "#else after #else")
	}
	top.sawElse = true
	top.active = top.parentActive && !top.taken
	top.taken = true
	return nil
}

func (c *condStack) Pop(pos token.Pos) error {
	if _, ok := c.frames.Pop(); !ok {
		return token.Errorf(token.ConditionalNestingError, pos, "#endif without #if")
	}
	return nil
}

// Unclosed returns an error for the innermost group still open.
func (c *condStack) Unclosed() error {
	top := c.top()
	if top == nil {
		return nil
	}
	return token.Errorf(token.ConditionalNestingError, top.pos, "unterminated #%s", top.name)
}
