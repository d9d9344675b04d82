package autograd

// DefaultSeed seeds parameter initialization when WithSeed is not given.
const DefaultSeed uint64 = 69

// Option configures a Graph.
type Option func(*config)

type config struct {
	legacyLog    bool
	overwriteFan bool
	seed         uint64
}

func defaultConfig() config {
	return config{seed: DefaultSeed}
}

// WithLegacyLogGradient makes Log propagate x * grad instead of grad / x.
// Only useful to reproduce gradients recorded by older versions of the engine.
func WithLegacyLogGradient() Option {
	return func(c *config) { c.legacyLog = true }
}

// WithOverwriteFanIn switches Backward to a depth-first, pre-order walk in which every
// Op overwrites its inputs' gradients as soon as it runs.
//
// A Variable feeding several Ops then keeps only the contribution of the path visited last.
// The default traversal sums contributions at fan-in points.
func WithOverwriteFanIn() Option {
	return func(c *config) { c.overwriteFan = true }
}

// WithSeed sets the seed used to initialize layer parameters created on the graph.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}
