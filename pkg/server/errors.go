package server

import (
	"encoding/json"
	"net/http"
)

const (
	codeMissingAPIKey     = "missing_api_key"
	codeMissingLocation   = "missing_location"
	codeUpstream          = "upstream_error"
	codeInvalidCoordinate = "invalid_coordinate"
	codeInvalidLimit      = "invalid_limit"
	codeDatasetError      = "dataset_unavailable"
	codeRateLimited       = "rate_limited"
	codeForbidden         = "forbidden"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	writeRaw(w, status, payload)
}

func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
