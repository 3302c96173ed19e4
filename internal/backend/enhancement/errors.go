package enhancement

import "fmt"

// EnhancementError reports that one source image could not be enhanced
type EnhancementError struct {
	Source string
	Err    error
}

func (e *EnhancementError) Error() string {
	return fmt.Sprintf("error enhancing image %s: %v", e.Source, e.Err)
}

func (e *EnhancementError) Unwrap() error {
	return e.Err
}
