package dataprocessing

// CursorState is the position of a row scan relative to composition blocks
type CursorState int

const (
	CursorNone CursorState = iota
	CursorInComposition
)

func (s CursorState) String() string {
	if s == CursorInComposition {
		return "IN_COMPOSITION"
	}
	return "NONE"
}

// RowClass is what a classifier decided a single row is
type RowClass int

const (
	RowSkip RowClass = iota
	RowHeader
	RowComponent
	RowReset
)

func (c RowClass) String() string {
	switch c {
	case RowHeader:
		return "header"
	case RowComponent:
		return "component"
	case RowReset:
		return "reset"
	default:
		return "skip"
	}
}

// Cursor tracks the composition that component rows currently attach to
type Cursor struct {
	state CursorState
	code  string
}

// Enter opens a composition block
func (c *Cursor) Enter(code string) {
	c.state = CursorInComposition
	c.code = code
}

// Reset closes the current block
func (c *Cursor) Reset() {
	c.state = CursorNone
	c.code = ""
}

// Current returns the open composition code, if any
func (c *Cursor) Current() (string, bool) {
	return c.code, c.state == CursorInComposition
}

// State returns the cursor state
func (c *Cursor) State() CursorState {
	return c.state
}
