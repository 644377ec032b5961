package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingDelay pads failed authentication paths so "no such account" and
// "wrong password" take indistinguishable time. Successful logins are not
// delayed unless configured otherwise.
type TimingDelay struct {
	base           time.Duration
	jitter         time.Duration
	delayOnSuccess bool
}

// NewTimingDelay creates a TimingDelay with the given base delay and random
// jitter range.
func NewTimingDelay(base, jitter time.Duration, delayOnSuccess bool) *TimingDelay {
	return &TimingDelay{base: base, jitter: jitter, delayOnSuccess: delayOnSuccess}
}

// Wait sleeps until at least base plus a random jitter has elapsed since
// start. Elapsed handler time counts toward the target, so fast and slow
// failure paths converge.
func (td *TimingDelay) Wait(start time.Time, success bool) {
	if success && !td.delayOnSuccess {
		return
	}

	target := td.base + randomJitter(td.jitter)
	if elapsed := time.Since(start); elapsed < target {
		time.Sleep(target - elapsed)
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	n := binary.BigEndian.Uint64(buf[:])
	return time.Duration(n % uint64(max))
}
