package registry

import (
	"fmt"

	"outpost/types"
)

// DefaultLabel derives a human-readable summary for an action when the
// caller did not supply one. Pure function, one branch per type; unknown
// types fall back to the raw type name.
func DefaultLabel(t types.ActionType, p types.Payload) string {
	switch t {
	case types.ActionBookingCreate:
		return fmt.Sprintf("Booking for %v", field(p, "customer"))
	case types.ActionBookingCancel:
		return fmt.Sprintf("Cancel booking %v", field(p, "id"))
	case types.ActionStockUpdate:
		return fmt.Sprintf("Stock update for %v (qty %v)", field(p, "product_id"), field(p, "delta"))
	case types.ActionSaleRecord:
		return fmt.Sprintf("Sale totalling %v", field(p, "total"))
	case types.ActionPrescriptionDispense:
		return fmt.Sprintf("Dispense prescription %v", field(p, "id"))
	case types.ActionMessageSend:
		return fmt.Sprintf("Message to %v", field(p, "to"))
	case types.ActionGenericRequest:
		return fmt.Sprintf("%v %v", field(p, "method"), field(p, "url"))
	default:
		return string(t)
	}
}

func field(p types.Payload, key string) any {
	if p == nil {
		return "?"
	}
	v, ok := p[key]
	if !ok || v == nil || v == "" {
		return "?"
	}
	return v
}
