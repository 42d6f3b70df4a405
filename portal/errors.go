package portal

// CancelledError indicates that an operation was cancelled, either by the
// user through the portal dialog or by the caller's context.
type CancelledError struct {
	Op string
}

func (e *CancelledError) Error() string {
	return e.Op + " cancelled"
}

// DeniedError indicates that the portal or the user rejected a request.
type DeniedError struct {
	Op string
}

func (e *DeniedError) Error() string {
	return e.Op + " denied"
}

// PreconditionError indicates that a call was rejected locally, before
// reaching the bus: wrong session kind, wrong lifecycle state, or a
// missing device capability.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// ResponseError indicates a malformed Request.Response signal body.
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string {
	return "malformed portal response: " + e.Reason
}
