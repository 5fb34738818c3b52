package controls

import (
	"errors"
	"fmt"
)

// ErrSelectionDisabled is returned for a selection postback the calendar's
// SelectionMode does not allow.
var ErrSelectionDisabled = errors.New("controls: selection mode does not allow this selection")

// PostBackError reports a malformed postback argument.
type PostBackError struct {
	Control  string
	Argument string
	Reason   string
	Err      error
}

func (e *PostBackError) Error() string {
	msg := fmt.Sprintf("controls: %s postback %q", e.Control, e.Argument)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PostBackError) Unwrap() error { return e.Err }

// CommandError reports an unknown command or a bad command argument.
type CommandError struct {
	Command  string
	Argument string
	Reason   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("controls: command %q (%q)", e.Command, e.Argument)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// PageIndexError is returned by DataBind when CurrentPageIndex lies outside
// the bound page range.
type PageIndexError struct {
	Index     int
	PageCount int
}

func (e *PageIndexError) Error() string {
	return fmt.Sprintf("controls: invalid CurrentPageIndex %d, must be >= 0 and < page count %d", e.Index, e.PageCount)
}
