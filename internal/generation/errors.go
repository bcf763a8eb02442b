package generation

import (
	"errors"
	"fmt"
)

var ErrNoTopics = errors.New("generation: at least one topic is required")

// EmptyPlanError means a stage parsed fine but produced zero items.
type EmptyPlanError struct {
	Stage string
}

func (e *EmptyPlanError) Error() string {
	return fmt.Sprintf("%s produced no items", e.Stage)
}

// PersistenceError is a rejected chapter write. Chapters persisted before it
// stay persisted.
type PersistenceError struct {
	Chapter int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist chapter %d: %v", e.Chapter, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageError records where a run stopped. Chapter is 0 for course-level
// stages such as planning.
type StageError struct {
	Stage   string
	Chapter int
	Err     error
}

func (e *StageError) Error() string {
	if e.Chapter > 0 {
		return fmt.Sprintf("generation stopped at %s (chapter %d): %v", e.Stage, e.Chapter, e.Err)
	}
	return fmt.Sprintf("generation stopped at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

const (
	StagePlanning     = "planning"
	StageModules      = "modules"
	StageSubMaterials = "sub_materials"
	StageContent      = "content"
	StagePersist      = "persist"
	StageCanceled     = "canceled"
)
