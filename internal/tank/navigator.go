package tank

import (
	"context"
	"fmt"
)

// ShipmentClearer resets the shipments a client has in progress.
type ShipmentClearer interface {
	ClearShipments(ctx context.Context, clientID string) (int64, error)
}

// Navigator routes "open tank" intents and performs the shipment reset
// that belongs to entering the empty tank menu.
type Navigator struct {
	shipments ShipmentClearer
}

// NewNavigator creates a Navigator clearing shipments through s.
func NewNavigator(s ShipmentClearer) *Navigator {
	return &Navigator{shipments: s}
}

// Open returns the target for tapping v. When the target is the empty tank
// menu, the client's shipments are cleared first, once per call; if that
// fails no target is returned.
func (n *Navigator) Open(ctx context.Context, clientID string, v View) (Target, error) {
	target := Route(v, OpenTank())
	if target.Route != RouteEmptyTank {
		return target, nil
	}
	if _, err := n.shipments.ClearShipments(ctx, clientID); err != nil {
		return Target{}, fmt.Errorf("failed to clear shipments for client %q: %w", clientID, err)
	}
	return target, nil
}
