package scraper

type cursorState int

const (
	cursorStart cursorState = iota
	cursorToken
	cursorEnd
)

// Cursor tracks pagination. A crawl begins at the start cursor, follows
// continuation tokens and finishes at the end cursor.
type Cursor struct {
	state cursorState
	token string
}

// StartCursor returns the cursor for the first page.
func StartCursor() Cursor {
	return Cursor{state: cursorStart}
}

func endCursor() Cursor {
	return Cursor{state: cursorEnd}
}

// TokenCursor returns a continuation cursor. An empty token means there are
// no more pages.
func TokenCursor(token string) Cursor {
	if token == "" {
		return endCursor()
	}
	return Cursor{state: cursorToken, token: token}
}

// Advance builds the next cursor from a response's nextId field.
func Advance(next *string) Cursor {
	if next == nil {
		return endCursor()
	}
	return TokenCursor(*next)
}

// IsEnd reports whether pagination is finished.
func (c Cursor) IsEnd() bool { return c.state == cursorEnd }

// NextID returns the value to send as nextId: nil for the first page.
func (c Cursor) NextID() *string {
	if c.state != cursorToken {
		return nil
	}
	token := c.token
	return &token
}

func (c Cursor) String() string {
	switch c.state {
	case cursorStart:
		return "start"
	case cursorEnd:
		return "end"
	default:
		return c.token
	}
}
