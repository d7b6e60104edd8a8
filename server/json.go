package server

import (
	"encoding/json"
	"net/http"

	"github.com/consensys/gnark/logger"
)

func ReturnJSON(w http.ResponseWriter, resp any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log := logger.Logger()
		log.Error().Err(err).Msg("encoding response")
	}
}

func ReturnErrorJSON(w http.ResponseWriter, msg string, statusCode int) {
	ReturnJSON(w, map[string]any{"error": msg}, statusCode)
}
