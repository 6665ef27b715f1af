package grammar

// DefaultMaxDepth bounds validation recursion. Pathological inputs can force
// recursion proportional to their own nesting depth, so the limit is explicit
// rather than relying on the goroutine stack.
const DefaultMaxDepth = 500

// Context is the mutable, request-scoped state threaded through a validation
// or evaluation call. It carries the position trace used for error reporting,
// the value currently under scrutiny, and free-form slots collaborators may
// use to accumulate state across the walk.
//
// The resolver speculates during backtracking by cloning the whole context;
// slot names registered as shared are exempt from cloning and stay aliased
// across all branches. Use shared slots for values that are never mutated or
// that cannot be structurally copied (drivers, sinks).
type Context struct {
	trace    []string
	current  any
	slots    map[string]any
	shared   map[string]struct{}
	maxDepth int
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithSlot seeds a named slot value.
func WithSlot(name string, value any) ContextOption {
	return func(c *Context) {
		c.slots[name] = value
	}
}

// WithSharedSlot marks a slot name as exempt from copy-on-branch. Shared
// slots are aliased, never cloned, so they must not be mutated by node logic.
func WithSharedSlot(name string) ContextOption {
	return func(c *Context) {
		c.shared[name] = struct{}{}
	}
}

// WithMaxDepth overrides the recursion bound.
func WithMaxDepth(n int) ContextOption {
	return func(c *Context) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// NewContext creates a fresh context for one top-level call.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		slots:    make(map[string]any),
		shared:   make(map[string]struct{}),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Slot returns a named slot value.
func (c *Context) Slot(name string) (any, bool) {
	v, ok := c.slots[name]
	return v, ok
}

// SetSlot stores a named slot value.
func (c *Context) SetSlot(name string, value any) {
	c.slots[name] = value
}

// Trace returns a copy of the current position trace, root first.
func (c *Context) Trace() []string {
	out := make([]string, len(c.trace))
	copy(out, c.trace)
	return out
}

// Depth reports the current trace depth.
func (c *Context) Depth() int {
	return len(c.trace)
}

// Enter pushes a trace frame and records val as the value under scrutiny.
// The returned function pops the frame again and must be called only on the
// success path: on failure the frame is deliberately left in place so the
// trace describes the exact path from the root to the failure site.
func (c *Context) Enter(label string, val any) (func(), error) {
	if len(c.trace) >= c.maxDepth {
		return nil, NewInvalidInput("the value is nested more than %d levels deep", c.maxDepth)
	}
	c.trace = append(c.trace, label)
	previous := c.current
	c.current = val
	return func() {
		c.trace = c.trace[:len(c.trace)-1]
		c.current = previous
	}, nil
}

// clone duplicates every mutable part of the context so a speculative branch
// can run without observable effects. Shared slots keep their identity.
func (c *Context) clone() *Context {
	dup := &Context{
		trace:    make([]string, len(c.trace)),
		current:  deepCopyValue(c.current),
		slots:    make(map[string]any, len(c.slots)),
		shared:   c.shared,
		maxDepth: c.maxDepth,
	}
	copy(dup.trace, c.trace)
	for name, value := range c.slots {
		if _, ok := c.shared[name]; ok {
			dup.slots[name] = value
			continue
		}
		dup.slots[name] = deepCopyValue(value)
	}
	return dup
}

// adopt replaces the live context contents with those of a winning
// backtracking branch, so callers holding the original pointer observe the
// branch's effects.
func (c *Context) adopt(winner *Context) {
	c.trace = winner.trace
	c.current = winner.current
	c.slots = winner.slots
	c.shared = winner.shared
	c.maxDepth = winner.maxDepth
}
