package pipeline

import (
	"errors"

	"smartcal/internal/extract"
	"smartcal/internal/models"
)

// User-visible messages.
const (
	MessageCreated          = "일정이 성공적으로 등록되었습니다!"
	MessageCreatedDuplicate = "일정이 등록되었습니다. (동일한 제목의 일정이 이미 존재할 수 있습니다.)"
	MessageDryRun           = "미리보기: 일정이 등록되지 않았습니다."
	MessageExtractFailed    = "제공된 텍스트에서 일정 정보를 추출할 수 없습니다."
	DetailsExtractFailed    = "텍스트에 날짜, 시간, 일정 제목 등의 정보가 포함되어 있는지 확인해주세요."
)

// Error codes for failures that callers handle specially.
const (
	ErrorReauthenticate         = "auth_required"
	ErrorInsufficientPermission = "insufficient_permission"
)

// Response is the outcome shown to the user.
type Response struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message,omitempty"`
	Error     string               `json:"error,omitempty"`
	Details   string               `json:"details,omitempty"`
	Event     *models.CreatedEvent `json:"event,omitempty"`
	Payload   *models.EventPayload `json:"payload,omitempty"`
	Duplicate bool                 `json:"isDuplicate,omitempty"`
}

// Respond renders a Register result or error. Extraction failures get their
// own code and hint; auth failures say whether to log in again or grant
// access; any other error's message is passed through.
func Respond(res *Result, err error) Response {
	if err != nil {
		var extractErr *extract.ExtractionError
		var authErr *models.AuthError
		switch {
		case errors.As(err, &extractErr):
			return Response{
				Error:   extractErr.Reason,
				Message: MessageExtractFailed,
				Details: DetailsExtractFailed,
			}
		case errors.As(err, &authErr):
			code := ErrorReauthenticate
			if authErr.Kind == models.AuthInsufficientPermission {
				code = ErrorInsufficientPermission
			}
			return Response{Error: code, Message: authErr.Error()}
		default:
			return Response{Error: err.Error(), Message: err.Error()}
		}
	}

	resp := Response{Success: true, Event: res.Event, Duplicate: res.Duplicate}
	switch {
	case res.DryRun:
		resp.Message = MessageDryRun
		resp.Payload = res.Payload
	case res.Duplicate:
		resp.Message = MessageCreatedDuplicate
	default:
		resp.Message = MessageCreated
	}
	return resp
}
