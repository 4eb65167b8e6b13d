package autopsy

// Config controls Autopsy construction. Every field has a zero value that
// reproduces the original implementation's behavior.
type Config struct {
	// Verbose enables the analysis pipeline's narration, mirroring the
	// original's llvm::dbgs() trace lines.
	Verbose bool

	// SkipBaseVersionSymbols drops dynamic symbols whose resolved version is
	// the pseudo-version "Base" (no explicit symbol version). The original
	// leaves a TODO to do this but never implements it; default false
	// preserves that behavior. See SPEC_FULL.md §10.
	SkipBaseVersionSymbols bool

	// Seed seeds the PRNG used by RandomSymbol. Zero means "seed from the
	// wall clock", matching the original's srand(time(NULL)).
	Seed int64
}
