package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

// responseWithPayload собирает JSON-объект из пар ключ-значение
func responseWithPayload(w http.ResponseWriter, code int, payload ...Payload) {
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}
	responseWithJSON(w, code, storage)
}

func responseWithJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	json.NewEncoder(w).Encode(data)
}

// responseWithError: код ошибки строится из статуса, например 400 -> BAD_REQUEST
func responseWithError(w http.ResponseWriter, code int, message string) {
	responseWithPayload(w, code,
		toPayload("error", errorCode(code)),
		toPayload("message", message),
	)
}

func errorCode(status int) string {
	if status == http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
