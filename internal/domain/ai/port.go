package ai

import "context"

type Client interface {
	Summarize(ctx context.Context, report string) (string, error)
}
