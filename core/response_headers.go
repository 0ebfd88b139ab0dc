package core

import (
	"net/http"
)

var HeadersJson = map[string]string{
	"Content-Type": "application/json; charset=utf-8",

	// mitigate MIME-type sniffing attacks
	"X-Content-Type-Options": "nosniff",

	// Responses carry tokens and account data: never cache.
	"Cache-Control": "no-store, no-cache, must-revalidate",

	"X-Frame-Options": "DENY",

	// JSON is never an active document. frame-ancestors replaces
	// X-Frame-Options in modern browsers.
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// setHeaders sets multiple headers from a map
func setHeaders(w http.ResponseWriter, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
}
