package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-jwt-session/authapi"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeFailure writes the {success:false, message} body every auth endpoint
// uses for errors.
func writeFailure(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, authapi.Response{Success: false, Message: message})
}
