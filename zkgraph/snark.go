package zkgraph

import (
	"encoding/json"
	"fmt"
)

// Protocol identifies the proving system a Snark was produced under.
type Protocol struct {
	Scheme         string `json:"scheme"`
	Curve          string `json:"curve"`
	SettingsDigest string `json:"settings_digest"`
}

// Snark is the self-describing proof object handed across the byte boundary.
// Instances mirror the settings' instance-column layout: each inner slice is
// one column of decimal field elements.
type Snark struct {
	Protocol       Protocol       `json:"protocol"`
	Instances      [][]string     `json:"instances"`
	Proof          string         `json:"proof"`
	EncodedProof   string         `json:"encoded_proof,omitempty"`
	TranscriptType TranscriptType `json:"transcript_type"`
}

// SnarkFromBytes decodes the JSON proof encoding.
func SnarkFromBytes(data []byte) (*Snark, error) {
	var s Snark
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decoding proof: %v", ErrMalformedProof, err)
	}
	return &s, nil
}

// Bytes returns the JSON encoding of the proof.
func (s *Snark) Bytes() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding proof: %v", ErrSerialization, err)
	}
	return data, nil
}
