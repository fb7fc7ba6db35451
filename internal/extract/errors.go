package extract

import (
	"errors"
	"fmt"
)

// ReasonExtractFailed means neither the model output nor the heuristics
// produced a usable title.
const ReasonExtractFailed = "extract_failed"

var errNotObject = errors.New("top-level JSON value is not an object")

// ParseError is a decode failure at one recovery stage. It never escapes
// Extract; the next stage is tried instead.
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode at stage %s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError means no event can be built from the text.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "제공된 텍스트에서 일정 정보를 추출할 수 없습니다."
}

// IsExtractionFailure reports whether err is an ExtractionError.
func IsExtractionFailure(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
