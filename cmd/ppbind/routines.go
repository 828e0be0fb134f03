package main

import (
	"fmt"
	"runtime"
	"sync"
)

// spawn runs f on its own goroutine and hands its error to done. A panic in
// f reaches done as an error carrying the stack.
func spawn(wg *sync.WaitGroup, f func() error, done func(error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		done(guard(f))
	}()
}

func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return f()
}

func panicError(r any) error {
	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	return fmt.Errorf("panic: %v\n\n%s", r, buf[:n])
}
