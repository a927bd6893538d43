package utils

import "os"

// FrontendURL returns the SPA origin used for CORS and payment redirects.
func FrontendURL() string {
	url := os.Getenv("FRONTEND_URL")
	if url == "" {
		return "http://localhost:3000"
	}
	return url
}
