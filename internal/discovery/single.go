package discovery

import (
	"context"
	"iter"
)

// SingleFileStrategy yields the root itself
type SingleFileStrategy struct{}

func NewSingleFileStrategy() *SingleFileStrategy {
	return &SingleFileStrategy{}
}

func (s *SingleFileStrategy) FindFiles(_ context.Context, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield(root, nil)
	}
}
