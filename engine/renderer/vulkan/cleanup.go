package vulkan

// cleanupStack collects release functions while a multi-step constructor
// runs. On failure run destroys everything created so far in reverse
// order; on success release hands ownership to the constructed object.
type cleanupStack struct {
	fns []func()
}

func (c *cleanupStack) push(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *cleanupStack) run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

func (c *cleanupStack) release() {
	c.fns = nil
}

// detach empties the stack and returns a func that runs what it held, for
// objects the caller must release later than the constructor returns.
func (c *cleanupStack) detach() func() {
	fns := c.fns
	c.fns = nil
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
