package convert

import "fmt"

// Stage is the step of a conversion that failed.
type Stage string

// Stages
const (
	StageOpen   Stage = "open"
	StageDecode Stage = "decode"
	StagePack   Stage = "pack"
	StageWrite  Stage = "write"
)

// FileError records a failed conversion of one file.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("convert: %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
