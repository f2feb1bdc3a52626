package util

import "fmt"

// Assert panics with the given message if the condition is false. Handlers
// run behind a recovery middleware, so a failed assertion costs one request.
func Assert(condition bool, msg string) {
	if !condition {
		panic(fmt.Sprintf("assertion failed: %s", msg))
	}
}
