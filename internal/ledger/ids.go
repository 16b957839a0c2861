package ledger

import (
	"encoding/binary"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var lastDebtID atomic.Int64

// NewDebtID returns a millisecond timestamp id that is strictly increasing
// within the process.
func NewDebtID() string {
	for {
		prev := lastDebtID.Load()
		next := time.Now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if lastDebtID.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// NewShortID returns a base-36 timestamp followed by 8 random base-36 characters.
func NewShortID() string {
	u := uuid.New()
	rnd := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	if len(rnd) < 8 {
		rnd = strings.Repeat("0", 8-len(rnd)) + rnd
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + rnd[len(rnd)-8:]
}
