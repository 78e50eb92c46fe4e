package enum

import (
	"encoding/json"
	"fmt"
)

// CartState represents where an in-progress cart is in its lifecycle
type CartState int

const (
	CartStateEmpty     CartState = 0
	CartStatePopulated CartState = 1
	CartStateHeld      CartState = 2
	CartStateEditing   CartState = 3
	CartStateBilled    CartState = 4
	CartStateBilling   CartState = 5
)

var cartStateNames = [...]string{"Empty", "Populated", "Held", "Editing", "Billed", "Billing"}

func (s CartState) String() string {
	if s < 0 || int(s) >= len(cartStateNames) {
		return fmt.Sprintf("CartState(%d)", int(s))
	}
	return cartStateNames[s]
}

func (s CartState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *CartState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = CartState(i)
		return nil
	}
	for i, name := range cartStateNames {
		if name == str {
			*s = CartState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cart state %q", str)
}

// CanTransition reports whether a cart may move from s to next.
func (s CartState) CanTransition(next CartState) bool {
	switch s {
	case CartStateEmpty:
		return next == CartStatePopulated || next == CartStateEditing
	case CartStatePopulated:
		return next == CartStateEmpty || next == CartStateHeld || next == CartStateBilling
	case CartStateHeld:
		return next == CartStatePopulated
	case CartStateEditing:
		return next == CartStateBilling
	case CartStateBilling:
		// a failed write hands the cart back in the state it was claimed from
		return next == CartStatePopulated || next == CartStateEditing || next == CartStateBilled
	}
	return false
}
