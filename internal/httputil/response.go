package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes data as JSON with the given status. The payload is
// marshaled before any header is written so an encoding failure still
// produces a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// Problem is an RFC 7807 problem document. Code is an extension member
// naming the error kind, e.g. CYCLE or NOT_FOUND.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

type statusInfo struct {
	code    string
	typeURI string
}

var problemTypes = map[int]statusInfo{
	http.StatusBadRequest:            {"BAD_REQUEST", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.1"},
	http.StatusUnauthorized:          {"UNAUTHORIZED", "https://datatracker.ietf.org/doc/html/rfc7235#section-3.1"},
	http.StatusForbidden:             {"FORBIDDEN", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.3"},
	http.StatusNotFound:              {"NOT_FOUND", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.4"},
	http.StatusConflict:              {"CONFLICT", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.8"},
	http.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.11"},
	http.StatusInternalServerError:   {"INTERNAL", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.1"},
	http.StatusServiceUnavailable:    {"SERVICE_UNAVAILABLE", "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.4"},
}

// RespondError writes a problem document whose code is derived from status.
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondProblem(w, status, "", detail)
}

// RespondProblem writes a problem document. An empty code falls back to the
// generic code for status.
func RespondProblem(w http.ResponseWriter, status int, code, detail string) {
	info, ok := problemTypes[status]
	if !ok {
		info = statusInfo{code: "ERROR", typeURI: "about:blank"}
	}
	if code == "" {
		code = info.code
	}

	payload, err := json.Marshal(Problem{
		Type:   info.typeURI,
		Title:  http.StatusText(status),
		Status: status,
		Code:   code,
		Detail: detail,
	})
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}
