package core

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   []byte
}

// JsonBasic contains the basic response fields. All responses must have them
type JsonBasic struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JsonWithData is used for structured JSON responses with data
type JsonWithData struct {
	JsonBasic
	Data any `json:"data,omitempty"`
}

// writeJsonWithData writes a structured JSON response with the provided data
func writeJsonWithData(w http.ResponseWriter, resp JsonWithData) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// For successful precomputed responses
func writeJsonOk(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// writeJsonError writes a precomputed JSON error response
func writeJsonError(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// writeInternalError writes the generic 500 of code. Outside production
// the error message is added as data.detail.
func (a *App) writeInternalError(w http.ResponseWriter, resp jsonResponse, err error) {
	if a.Config().IsProduction() || err == nil {
		writeJsonError(w, resp)
		return
	}

	var basic JsonBasic
	if jerr := json.Unmarshal(resp.body, &basic); jerr != nil {
		writeJsonError(w, resp)
		return
	}
	writeJsonWithData(w, JsonWithData{
		JsonBasic: basic,
		Data:      map[string]string{"detail": err.Error()},
	})
}
