package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response body with the given status. A nil
// payload writes the status header only.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteJSONError writes a {"error": ...} body with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
