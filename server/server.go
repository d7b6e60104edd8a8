// Package server exposes the proving pipeline over HTTP for deployments
// where key material is loaded once and many proofs are requested against it.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/consensys/gnark/logger"
	"github.com/pkg/errors"

	"github.com/zkgraphlabs/zkgraph-gnark/zkgraph"
)

type Server struct {
	graph      *zkgraph.Graph
	settings   *zkgraph.GraphSettings
	pk         *zkgraph.ProvingKey
	vk         *zkgraph.VerifyingKey
	transcript zkgraph.TranscriptType
}

// New loads the model, settings and keys from dataDir and returns a server
// ready to prove and verify.
func New(ctx context.Context, dataDir string, transcript zkgraph.TranscriptType) (*Server, error) {
	artifacts, err := LoadArtifacts(ctx, dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "loading artifacts")
	}
	return &Server{
		graph:      artifacts.Graph,
		settings:   artifacts.Settings,
		pk:         artifacts.Pk,
		vk:         artifacts.Vk,
		transcript: transcript,
	}, nil
}

// Start listens for requests on the given port until the listener fails.
func (s *Server) Start(port string) error {
	router := http.NewServeMux()
	router.HandleFunc("GET /healthz", s.healthz)
	router.HandleFunc("POST /prove", s.handleProve)
	router.HandleFunc("POST /verify", s.handleVerify)

	log := logger.Logger().With().Str("component", "server").Logger()
	log.Info().Str("port", port).Msg("listening")
	return http.ListenAndServe(":"+port, LoggingMiddleware(router))
}

// healthz reports ready once the keys are loaded.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.pk == nil || s.vk == nil {
		ReturnErrorJSON(w, "not ready", http.StatusInternalServerError)
		return
	}
	ReturnJSON(w, "OK", http.StatusOK)
}

// handleProve accepts a witness JSON body and returns the proof for it under
// the server's loaded keys.
func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		ReturnErrorJSON(w, "reading request", http.StatusBadRequest)
		return
	}
	witness, err := zkgraph.WitnessFromBytes(body)
	if err != nil {
		ReturnErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	snark, err := zkgraph.Prove(s.graph, s.settings, s.pk, witness, s.transcript)
	switch {
	case err == nil:
	case errors.Is(err, zkgraph.ErrMalformedWitness), errors.Is(err, zkgraph.ErrUnsatisfiedConstraint):
		ReturnErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	default:
		ReturnErrorJSON(w, "generating proof", http.StatusInternalServerError)
		return
	}
	ReturnJSON(w, snark, http.StatusOK)
}

// handleVerify accepts a proof JSON body and returns the verification
// outcome under the server's loaded verification key.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var snark zkgraph.Snark
	if err := json.NewDecoder(r.Body).Decode(&snark); err != nil {
		ReturnErrorJSON(w, "decoding request", http.StatusBadRequest)
		return
	}

	ok, err := zkgraph.Verify(&snark, s.vk, s.settings)
	switch {
	case err == nil:
	case errors.Is(err, zkgraph.ErrMalformedProof), errors.Is(err, zkgraph.ErrKeyMismatch):
		ReturnErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	default:
		ReturnErrorJSON(w, "verifying proof", http.StatusInternalServerError)
		return
	}
	ReturnJSON(w, map[string]bool{"verified": ok}, http.StatusOK)
}
