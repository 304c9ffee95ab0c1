package vector

import (
	"errors"
	"fmt"
)

var (
	ErrConnection        = errors.New("vector store connection failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

type DimensionMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: collection %q expects %d, got %d",
		ErrDimensionMismatch.Error(), e.Collection, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
