// Package otp reads the access token and request id out of OTP widget responses.
package otp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Strategy picks a value out of a decoded widget response.
type Strategy func(resp map[string]any) (string, bool)

// Field reads a non-blank string at a dotted path such as "data.token".
func Field(path string) Strategy {
	keys := strings.Split(path, ".")
	return func(resp map[string]any) (string, bool) {
		var cur any = resp
		for _, k := range keys {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[k]; !ok {
				return "", false
			}
		}
		s, ok := cur.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
}

// TokenStrategies is the order in which token locations are tried. They are
// skipped for responses that Failed reports.
var TokenStrategies = []Strategy{
	Field("message"),
	Field("token"),
	Field("accessToken"),
	Field("access_token"),
	Field("data.token"),
	Field("data.accessToken"),
	Field("data.message"),
}

// RequestIDStrategies is the order in which request id locations are tried.
var RequestIDStrategies = []Strategy{
	Field("reqId"),
	Field("request_id"),
	Field("data.reqId"),
}

// First returns the value of the first strategy that matches.
func First(resp map[string]any, strategies []Strategy) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, s := range strategies {
		if v, ok := s(resp); ok {
			return v, true
		}
	}
	return "", false
}

// Failed reports whether the widget marked resp as a failure. On failure the
// message field carries an error text, not a token.
func Failed(resp map[string]any) bool {
	kind, _ := resp["type"].(string)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "error", "failure", "failed":
		return true
	}
	return false
}

// Extract returns the access token from a widget response.
func Extract(resp map[string]any) (string, bool) {
	if Failed(resp) {
		return "", false
	}
	return First(resp, TokenStrategies)
}

// ExtractRequestID returns the OTP request id from a widget response.
func ExtractRequestID(resp map[string]any) (string, bool) {
	return First(resp, RequestIDStrategies)
}

// Decode parses a raw widget response and extracts the token. A bare JSON
// string is the token itself. Failure responses yield ErrVerificationFailed.
func Decode(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("otp: decode response: %w", err)
	}

	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s, nil
		}
	case map[string]any:
		if Failed(t) {
			if msg, ok := Field("message")(t); ok {
				return "", fmt.Errorf("%w: %s", ErrVerificationFailed, msg)
			}
			return "", ErrVerificationFailed
		}
		if s, ok := Extract(t); ok {
			return s, nil
		}
	}
	return "", ErrNoToken
}
