package id

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const ticketSuffixSpace = 1000

// TicketGenerator mints TICKET-<epoch-millis>-<3-digit-random> identifiers.
// Within a single millisecond it never hands out the same suffix twice; once
// all 1000 suffixes of a millisecond are used it waits for the next one.
type TicketGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	millis int64
	used   map[int]struct{}
}

func NewTicketGenerator() *TicketGenerator {
	return &TicketGenerator{now: time.Now, used: make(map[int]struct{})}
}

// NewTicketGeneratorWithClock is used by tests to pin the timestamp.
func NewTicketGeneratorWithClock(now func() time.Time) *TicketGenerator {
	return &TicketGenerator{now: now, used: make(map[int]struct{})}
}

func (g *TicketGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		ms := g.now().UnixMilli()
		if ms != g.millis {
			g.millis = ms
			clear(g.used)
		}
		if len(g.used) < ticketSuffixSpace {
			suffix := rand.IntN(ticketSuffixSpace)
			for {
				if _, taken := g.used[suffix]; !taken {
					break
				}
				suffix = (suffix + 1) % ticketSuffixSpace
			}
			g.used[suffix] = struct{}{}
			return FormatTicket(ms, suffix)
		}
		time.Sleep(time.Millisecond)
	}
}

func FormatTicket(millis int64, suffix int) string {
	return fmt.Sprintf("TICKET-%d-%03d", millis, suffix)
}

var defaultTickets = NewTicketGenerator()

// NewTicket mints a ticket identifier from the process-wide generator.
func NewTicket() string {
	return defaultTickets.Next()
}
