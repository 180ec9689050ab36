package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", `\`}

// startProgress draws a spinner on w until the returned stop func is called
// or ctx ends. stop clears the spinner and waits for the goroutine.
func startProgress(ctx context.Context, w io.Writer, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				fmt.Fprint(w, "\r \r")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
