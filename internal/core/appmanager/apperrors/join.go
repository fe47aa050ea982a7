package apperrors

import "strings"

// pipeJoined is an error formed from several independent failures, rendered
// with "|" as separator (matching the original Java implementation's
// Collectors.joining("|")). It implements the unexported Unwrap() []error
// shape so errors.Is/errors.As still see through to every member.
type pipeJoined struct {
	errs []error
}

// JoinPipe combines errs into one error whose Error() renders every
// non-nil member joined by "|". Returns nil if every member is nil, and the
// bare error if exactly one is non-nil.
func JoinPipe(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &pipeJoined{errs: filtered}
	}
}

func (j *pipeJoined) Error() string {
	parts := make([]string, len(j.errs))
	for i, err := range j.errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "|")
}

func (j *pipeJoined) Unwrap() []error {
	return j.errs
}
