package probe

import "fmt"

// ProbeError is returned when a metadata query fails or yields an unusable value.
type ProbeError struct {
	Path   string
	Query  string
	Stderr string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("probe %s of %s: %v", e.Query, e.Path, e.Err)
	}
	return fmt.Sprintf("probe %s of %s: %v, stderr: %s", e.Query, e.Path, e.Err, e.Stderr)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
