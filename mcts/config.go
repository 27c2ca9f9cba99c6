package mcts

// Config configures a Tree's PUCT constants, exploration behavior, and
// arena sizing. It mirrors the teacher's mcts.Config/dualnet.Config idiom:
// a plain struct with a DefaultConfig constructor and an IsValid validator.
type Config struct {
	// MemoryGiB sizes the arena: capacity = floor(MemoryGiB*2^30 / nodeBytes).
	MemoryGiB float64

	// ForcedPlayouts enables KataGo's guaranteed-minimum-visits override
	// during selection (spec.md §4.2, §8 "Forced-playouts monotonicity").
	ForcedPlayouts bool

	CBase float32
	CInit float32

	// DirichletAlpha and DirichletEpsilon parameterize AddNoise's root
	// exploration mixing: p <- (1-Epsilon)*p + Epsilon*noise.
	DirichletAlpha   float64
	DirichletEpsilon float32
}

// DefaultConfig returns the constants named in spec.md §4.2 and §4.5.
func DefaultConfig() Config {
	return Config{
		MemoryGiB:        1,
		ForcedPlayouts:   true,
		CBase:            defaultCBase,
		CInit:            defaultCInit,
		DirichletAlpha:   0.34,
		DirichletEpsilon: 0.25,
	}
}

// IsValid reports whether the configuration can be used to construct a Tree.
func (c Config) IsValid() bool {
	return c.MemoryGiB > 0 &&
		c.CBase > 0 &&
		c.CInit > 0 &&
		c.DirichletAlpha > 0 &&
		c.DirichletEpsilon >= 0 && c.DirichletEpsilon <= 1
}
