package zkgraph

import (
	"encoding/json"
	"fmt"
)

// Visibility governs where a class of values lives in the circuit: private
// values are witnesses, public values are instance-column entries, and fixed
// values are baked into the circuit (and therefore into the keys).
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
	VisibilityFixed   Visibility = "fixed"
)

func (v Visibility) valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityFixed:
		return true
	}
	return false
}

// TranscriptType selects the Fiat-Shamir transcript hash. The evm transcript
// uses SHA-256 hash-to-field on both sides so the proof can be checked by an
// on-chain verifier; native uses the proving system's default. Prover and
// verifier must agree or verification fails.
type TranscriptType string

const (
	TranscriptEVM    TranscriptType = "evm"
	TranscriptNative TranscriptType = "native"
)

func (t TranscriptType) valid() bool {
	return t == TranscriptEVM || t == TranscriptNative
}

// RunArgs is the user-facing configuration: numeric precision, sizing hints
// and the visibility policy. It is immutable once settings are derived.
type RunArgs struct {
	// Tolerance is the error budget, in quantized units, allowed between a
	// claimed public output and the value the circuit computes.
	Tolerance uint64 `json:"tolerance"`
	// Scale is the base-2 fixed-point scaling exponent applied to real
	// values before they are embedded in the field.
	Scale uint32 `json:"scale"`
	// Bits bounds the bit width of range-checked values.
	Bits uint32 `json:"bits"`
	// Logrows is log2 of the circuit's row capacity.
	Logrows uint32 `json:"logrows"`
	// BatchSize is the number of graph instances proved in one circuit.
	BatchSize uint32 `json:"batch_size"`

	InputVisibility  Visibility `json:"input_visibility"`
	OutputVisibility Visibility `json:"output_visibility"`
	ParamVisibility  Visibility `json:"param_visibility"`

	// AllocatedConstraints optionally bounds the constraint count. Settings
	// derivation fails if the row estimate exceeds it.
	AllocatedConstraints *uint64 `json:"allocated_constraints,omitempty"`
}

// Validate checks the arguments in isolation; graph-dependent checks happen
// in DeriveSettings.
func (a RunArgs) Validate() error {
	if a.Bits < 1 {
		return fmt.Errorf("%w: bits must be >= 1", ErrInvalidConfiguration)
	}
	if a.Bits > 250 {
		return fmt.Errorf("%w: bits %d exceeds the field capacity", ErrInvalidConfiguration, a.Bits)
	}
	if a.Logrows < 1 {
		return fmt.Errorf("%w: logrows must be >= 1", ErrInvalidConfiguration)
	}
	if a.Logrows > 28 {
		return fmt.Errorf("%w: logrows %d exceeds the supported srs range", ErrInvalidConfiguration, a.Logrows)
	}
	if a.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be >= 1", ErrInvalidConfiguration)
	}
	if !a.InputVisibility.valid() {
		return fmt.Errorf("%w: input_visibility %q", ErrInvalidConfiguration, a.InputVisibility)
	}
	if !a.OutputVisibility.valid() {
		return fmt.Errorf("%w: output_visibility %q", ErrInvalidConfiguration, a.OutputVisibility)
	}
	if !a.ParamVisibility.valid() {
		return fmt.Errorf("%w: param_visibility %q", ErrInvalidConfiguration, a.ParamVisibility)
	}
	if a.InputVisibility == VisibilityFixed {
		return fmt.Errorf("%w: graph inputs cannot be fixed", ErrInvalidConfiguration)
	}
	if a.OutputVisibility == VisibilityFixed {
		return fmt.Errorf("%w: graph outputs cannot be fixed", ErrInvalidConfiguration)
	}
	return nil
}

// RunArgsFromBytes decodes the JSON encoding of RunArgs.
func RunArgsFromBytes(data []byte) (RunArgs, error) {
	var a RunArgs
	if err := json.Unmarshal(data, &a); err != nil {
		return RunArgs{}, fmt.Errorf("%w: decoding run args: %v", ErrSerialization, err)
	}
	return a, nil
}

// Bytes returns the canonical JSON encoding of the arguments.
func (a RunArgs) Bytes() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding run args: %v", ErrSerialization, err)
	}
	return data, nil
}
