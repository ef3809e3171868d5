package conference

import "time"

func SetHomeRetryDelay(d time.Duration) (restore func()) {
	old := homeRetryDelay
	homeRetryDelay = d
	return func() { homeRetryDelay = old }
}

func SetClock(fn func() time.Time) (restore func()) {
	old := clock
	clock = fn
	return func() { clock = old }
}
