package proc

import (
	"fmt"
	"sync"
)

// Context mediates external access to the live state of processors inside
// a composed pipeline, after they have been built into a graph and are no
// longer directly reachable by the code that constructed them. It is a
// name -> access-factory registry; processors are referred to by pointer
// and never relocate once constructed, so the registry entries stay valid
// for the life of the pipeline.
type Context struct {
	mu        sync.Mutex
	factories map[string]func() any
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{factories: make(map[string]func() any)}
}

// Register associates name with a factory that produces an access object
// for the processor on demand. It is called once, by the processor's
// constructor, and panics if name is already registered; names must be
// unique within a Context and are never reused.
func (c *Context) Register(name string, factory func() any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[name]; exists {
		panic(fmt.Sprintf("proc: access factory already registered for %q", name))
	}
	c.factories[name] = factory
}

// Access returns the access object registered under name. Returns false if
// no processor has registered that name.
func (c *Context) Access(name string) (any, bool) {
	c.mu.Lock()
	factory, ok := c.factories[name]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// AccessTracker is embedded by any processor that wants to expose live
// access to its state. Call Init in the processor's constructor.
type AccessTracker struct {
	ctx  *Context
	name string
}

// Init registers factory under name with ctx. Panics if called more than
// once (an AccessTracker tracks exactly one object for its lifetime) or if
// ctx is nil.
func (t *AccessTracker) Init(ctx *Context, name string, factory func() any) {
	if ctx == nil {
		panic("proc: AccessTracker.Init requires a non-nil Context")
	}
	if t.ctx != nil {
		panic("proc: AccessTracker already initialized")
	}
	t.ctx = ctx
	t.name = name
	ctx.Register(name, factory)
}

// Name returns the name this tracker was registered under, or "" if Init
// has not been called.
func (t *AccessTracker) Name() string { return t.name }
