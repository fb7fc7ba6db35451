package models

import "fmt"

// APIError is a non-2xx response or a malformed envelope from an external API.
type APIError struct {
	Service    string // "gemini", "openrouter", "google-calendar", "caldav"
	StatusCode int    // 0 when the failure was not an HTTP status
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// AuthKind separates "the token is no good" from "the token lacks scope".
type AuthKind int

const (
	AuthReauthenticate AuthKind = iota
	AuthInsufficientPermission
)

// AuthError is a 401 or 403 from a calendar backend.
type AuthError struct {
	Service    string
	StatusCode int
	Kind       AuthKind
}

// AuthErrorFromStatus maps 401 and 403 to an AuthError and anything else to nil.
func AuthErrorFromStatus(service string, status int) *AuthError {
	switch status {
	case 401:
		return &AuthError{Service: service, StatusCode: status, Kind: AuthReauthenticate}
	case 403:
		return &AuthError{Service: service, StatusCode: status, Kind: AuthInsufficientPermission}
	}
	return nil
}

func (e *AuthError) Error() string {
	if e.Kind == AuthInsufficientPermission {
		return fmt.Sprintf("권한 오류 (%d): %s API에 대한 권한이 없습니다.", e.StatusCode, e.Service)
	}
	return fmt.Sprintf("인증 오류 (%d): 토큰이 만료되었거나 유효하지 않습니다. 다시 인증해주세요.", e.StatusCode)
}
