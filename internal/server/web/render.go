package web

import (
	"encoding/json"
	"net/http"
)

// Renderer draws a named page. Page templates live outside this package;
// the server only decides which page and which data.
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data map[string]any) error
}

// JSONRenderer writes {"page": ..., "data": ...}. It is the default when no
// template renderer is plugged in.
type JSONRenderer struct{}

type pageBody struct {
	Page string         `json:"page"`
	Data map[string]any `json:"data"`
}

func (JSONRenderer) Render(w http.ResponseWriter, status int, page string, data map[string]any) error {
	return writeJSON(w, status, pageBody{Page: page, Data: data})
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
