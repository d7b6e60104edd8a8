package zkgraph

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Witness is the caller-supplied input data for one proof: quantized decimal
// integers, one row per input tensor, batch-major. A graph with k input
// tensors proved at batch size b carries k*b rows.
type Witness struct {
	InputData [][]string `json:"input_data"`
}

// WitnessFromBytes decodes the JSON witness encoding.
func WitnessFromBytes(data []byte) (*Witness, error) {
	var w Witness
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding witness: %v", ErrMalformedWitness, err)
	}
	return &w, nil
}

// Bytes returns the JSON encoding of the witness.
func (w *Witness) Bytes() ([]byte, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding witness: %v", ErrSerialization, err)
	}
	return data, nil
}

// parse validates the witness against the graph's declared input shapes and
// splits it into per-batch-item tensors.
func (w *Witness) parse(g *Graph, batch int) ([][][]*big.Int, error) {
	k := len(g.InputShapes)
	if len(w.InputData) != k*batch {
		return nil, fmt.Errorf("%w: got %d input rows, want %d (%d tensors x batch %d)",
			ErrMalformedWitness, len(w.InputData), k*batch, k, batch)
	}
	out := make([][][]*big.Int, batch)
	for b := 0; b < batch; b++ {
		tensors := make([][]*big.Int, k)
		for t := 0; t < k; t++ {
			row := w.InputData[b*k+t]
			want := sizeOf(g.InputShapes[t])
			if len(row) != want {
				return nil, fmt.Errorf("%w: batch %d input %d has %d values, want %d",
					ErrMalformedWitness, b, t, len(row), want)
			}
			vals := make([]*big.Int, len(row))
			for j, s := range row {
				v, ok := new(big.Int).SetString(s, 10)
				if !ok {
					return nil, fmt.Errorf("%w: batch %d input %d value %q is not an integer",
						ErrMalformedWitness, b, t, s)
				}
				vals[j] = v
			}
			tensors[t] = vals
		}
		out[b] = tensors
	}
	return out, nil
}
