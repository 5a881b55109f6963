package failure

type Severity int

// cache control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRecoverable reports whether err may be tolerated by the caller
// without aborting the enclosing operation.
func IsRecoverable(err ClassifiedError) bool {
	return err != nil && err.Severity() == SeverityRecoverable
}
