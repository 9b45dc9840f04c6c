package utils

import "sync"

// GDAL handles are not safe for concurrent use, so every call into it goes
// through this lock.
var mu sync.Mutex

func ExecuteWithMutex(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	fn()
}

// Locked runs fn under the GDAL lock and returns its results.
func Locked[T any](fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	ExecuteWithMutex(func() {
		out, err = fn()
	})
	return out, err
}
