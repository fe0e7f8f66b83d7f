package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeTransport     ErrorType = "TRANSPORT"
	TypeTraversal     ErrorType = "TRAVERSAL"
	TypeGit           ErrorType = "GIT"
	TypeValidation    ErrorType = "VALIDATION"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if status, ok := e.Context["status"].(int); ok && status != 0 {
			msg += fmt.Sprintf(" - HTTP %d", status)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel this error was derived from.
// Derived errors share Type and Message with their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// IsType reports whether any AppError in err's chain has type t.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Err
	}
	return false
}

// Git errors
var (
	ErrNotInGitRepo = NewAppError(TypeGit, "Not in a git repository", nil).
			WithSuggestion("Run prist inside a clone or pass --path <repository>")

	ErrNoOrigin = NewAppError(TypeGit, "Repository has no 'origin' remote", nil).
			WithSuggestion("Add a remote: git remote add origin <url>")
)

// Configuration errors
var (
	ErrConfigMissing = NewAppError(TypeConfiguration, "Configuration is missing", nil).
				WithSuggestion("Did you forget to initialize? Run: prist init")

	ErrConfigInvalid = NewAppError(TypeConfiguration, "Configuration is invalid", nil).
				WithSuggestion("Re-run: prist init")

	ErrUnsupportedHost = NewAppError(TypeConfiguration, "Remote host is not supported", nil).
				WithSuggestion("Only github.com and bitbucket.org remotes are supported")

	ErrOwnerMissing = NewAppError(TypeConfiguration, "Endpoint owner is missing", nil).
			WithSuggestion("Set endpoint.owner in .prist/config.toml or PRIST_ENDPOINT_OWNER")

	ErrCredentialsMissing = NewAppError(TypeConfiguration, "Credentials are missing", nil).
				WithSuggestion("Run: prist init")

)

// Validation errors
var (
	ErrInvalidArgument = NewAppError(TypeValidation, "Invalid argument", nil).
				WithSuggestion("Run: prist pr --help")
)

// Transport errors
var (
	ErrRequestFailed = NewAppError(TypeTransport, "request failed", nil).
				WithSuggestion("Check your network connection and the endpoint in .prist/config.toml")

	ErrUnauthorized = NewAppError(TypeTransport, "credentials were rejected", nil).
			WithSuggestion("Check your username and app password / token, then run: prist init")

	ErrNotFound = NewAppError(TypeTransport, "resource not found", nil).
			WithSuggestion("Check the pull request id and repository access permissions")

	ErrRateLimit = NewAppError(TypeTransport, "API rate limit exceeded", nil).
			WithSuggestion("Wait a few minutes or lower --concurrency")

	ErrDecode = NewAppError(TypeTransport, "failed to decode response", nil)

	ErrAmbiguousActivity = NewAppError(TypeTransport, "activity entry matches more than one shape", nil)

	ErrPaginationLoop = NewAppError(TypeTransport, "pagination returned a cursor twice", nil)
)

// Traversal errors
var (
	ErrWalkLimit = NewAppError(TypeTraversal, "commit walk exceeded its step limit", nil).
			WithSuggestion("The remote parent chain may be cyclic; raise --max-walk if the branch is very long")

	ErrMergeBaseUnresolved = NewAppError(TypeTraversal, "merge base could not be resolved", nil)

	ErrRootBeforeMergeBase = NewAppError(TypeTraversal, "commit chain ended before reaching the merge base", nil).
				WithSuggestion("Run without --strict to keep the partial chain")
)
