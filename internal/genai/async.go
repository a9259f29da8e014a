package genai

import (
	"context"
	"fmt"
)

// Reply is the outcome of an asynchronous completion.
type Reply struct {
	Text string
	Err  error
}

// CompleteAsync runs c.Complete in a goroutine and delivers the reply on the
// returned channel, which is buffered and always receives exactly one value.
func CompleteAsync(ctx context.Context, c Completer, messages []Message, opts Options) <-chan Reply {
	ch := make(chan Reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- Reply{Err: fmt.Errorf("completion panic: %v", r)}
			}
		}()
		text, err := c.Complete(ctx, messages, opts)
		ch <- Reply{Text: text, Err: err}
	}()
	return ch
}
