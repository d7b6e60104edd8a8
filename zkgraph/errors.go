package zkgraph

import "errors"

// Error taxonomy for the proving pipeline. Callers are expected to test with
// errors.Is; everything below is wrapped with context before it surfaces.
var (
	// ErrInvalidConfiguration is returned when the run arguments cannot
	// produce a circuit that fits the declared row capacity.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedGraph is returned when the graph references an operator
	// the circuit layer cannot lower.
	ErrUnsupportedGraph = errors.New("unsupported graph")

	// ErrSettingsMismatch is returned when an artifact is used with settings
	// other than the ones it was generated under.
	ErrSettingsMismatch = errors.New("settings mismatch")

	// ErrKeyMismatch is returned by verification when the verification key
	// was generated under different settings than the ones supplied.
	ErrKeyMismatch = errors.New("key mismatch")

	// ErrInsufficientSrs is returned when the structured reference string is
	// smaller than the circuit's row capacity requires.
	ErrInsufficientSrs = errors.New("insufficient srs")

	// ErrMalformedWitness is returned when witness data cannot be parsed
	// against the graph's declared input shapes.
	ErrMalformedWitness = errors.New("malformed witness")

	// ErrMalformedProof is returned when a proof envelope cannot be parsed.
	// A parseable proof that fails the acceptance predicate is not an error.
	ErrMalformedProof = errors.New("malformed proof")

	// ErrSerialization is returned when a byte buffer does not decode into
	// the expected artifact shape.
	ErrSerialization = errors.New("serialization error")

	// ErrUnsatisfiedConstraint is returned by proving when the witness does
	// not satisfy the circuit.
	ErrUnsatisfiedConstraint = errors.New("unsatisfied constraint")
)
