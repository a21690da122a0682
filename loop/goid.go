package loop

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentGoroutineID parses the numeric goroutine id out of the runtime.Stack
// header ("goroutine 123 [running]:"). It exists only to back the OnLoop
// affinity check; nothing else keys off goroutine identity.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
