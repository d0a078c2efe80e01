package project

import "fmt"

// InputMissingError reports that a directory or file a command needs does
// not exist. Commands treat it as "nothing to do" rather than a failure.
type InputMissingError struct {
	What string
	Path string
	Hint string
}

func (e *InputMissingError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.What, e.Path)
}
