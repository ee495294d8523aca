package jobform

import (
	"time"

	"github.com/kingrea/fieldops/internal/domain"
)

// NavigateDelay is how long a success notice stays up before the form
// returns to the job list.
const NavigateDelay = 1500 * time.Millisecond

// Notice messages.
const (
	MsgLoadFailed       = "Failed to load initial data"
	MsgJobLoadFailed    = "Failed to load job details"
	MsgFixErrors        = "Please fix the errors in the form."
	MsgJobCreated       = "Job created successfully!"
	MsgJobUpdated       = "Job updated successfully!"
	MsgSaveFailed       = "Failed to save job"
	MsgRoleCreated      = "Role created successfully"
	MsgRoleCreateFailed = "Failed to create role"
	MsgItemCreated      = "Item created successfully"
	MsgItemCreateFailed = "Failed to create item"
)

// NoticeKind is the severity of a transient notice.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice is a transient message shown once to the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

func success(msg string) Notice { return Notice{Kind: NoticeSuccess, Message: msg} }

func failure(msg string) Notice { return Notice{Kind: NoticeError, Message: msg} }

// Failure carries the notice for a failed load or mutation along with the
// underlying cause.
type Failure struct {
	Notice Notice
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Notice.Message
	}
	return f.Notice.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome reports the result of Submit.
type Outcome struct {
	Notice Notice
	// Job is the record returned by the backend on success.
	Job domain.Job
	// NavigateAfter is non-zero when the view should return to the list.
	NavigateAfter time.Duration
}
