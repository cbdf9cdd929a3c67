package middleware

import (
	"bytes"
	"io"
	"medisched/pkg/errors"
	"medisched/pkg/logger"
	"medisched/pkg/signature"
	"net/http"
)

const SignatureHeader = signature.Header

// SignatureVerification guards internal webhooks with an HMAC-SHA256 of the raw
// body, sent as "sha256=<hex>".
func SignatureVerification(secret string, log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				reject(w, log, r, errors.Unauthorized("Webhook verification is not configured"))
				return
			}

			received := r.Header.Get(SignatureHeader)
			if received == "" {
				reject(w, log, r, errors.Unauthorized("Missing "+SignatureHeader+" header"))
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				reject(w, log, r, errors.InvalidInput("Failed to read request body"))
				return
			}

			if !signature.Verify(body, received, secret) {
				reject(w, log, r, errors.Unauthorized("Invalid webhook signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return body, nil
}
