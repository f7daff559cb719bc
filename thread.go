package winloop

import (
	"runtime"
)

// owner is the identity token of the goroutine allowed to make native calls.
type owner uint64

func currentOwner() owner {
	return owner(goroutineID())
}

// check returns a ThreadAffinityError if the caller is not o.
func (o owner) check(op string) error {
	if id := goroutineID(); id != uint64(o) {
		return &ThreadAffinityError{Op: op, Owner: uint64(o), Caller: id}
	}
	return nil
}

// goroutineID parses the current goroutine's ID from its stack header,
// "goroutine N [...".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
