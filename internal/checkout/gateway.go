package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDelay is how long the simulated gateway takes to approve.
const DefaultDelay = 2 * time.Second

// Charge is a payment request.
type Charge struct {
	UserID   int
	Amount   decimal.Decimal
	CardLast string
}

// Gateway approves or declines a charge.
type Gateway interface {
	Charge(ctx context.Context, c Charge) error
}

// SimulatedGateway stands in for a payment processor. It waits Delay and
// then returns Err, which is nil for an approval.
type SimulatedGateway struct {
	Delay time.Duration
	Err   error
}

func (g *SimulatedGateway) Charge(ctx context.Context, _ Charge) error {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return g.Err
}
