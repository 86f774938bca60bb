package atlas

import "errors"

// Error kinds shared by every pipeline. Wrap them with fmt.Errorf("%w: ...")
// and test with errors.Is.
var (
	ErrFormat   = errors.New("format error")
	ErrIO       = errors.New("io error")
	ErrGeometry = errors.New("geometry error")
)
