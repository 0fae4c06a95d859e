package apperrors

// ErrCapacityExceeded is the class of every subscription limit denial. The
// concrete error is a *capacity.LimitError carrying the counts.
var ErrCapacityExceeded = newError(Forbidden, "subscription limit reached")
