package notify

import (
	"fmt"

	"github.com/ADX777/Timelock-newbot/store"
)

// OrderCreatedMessage formats the operator alert for a new order.
func OrderCreatedMessage(o store.Order) string {
	return fmt.Sprintf(
		"🔐 Coin: %s\n"+
			"💰 Target price: %s\n"+
			"⏰ Unlock: %s\n"+
			"🧾 Order: %s\n"+
			"💵 To pay: %s USDT",
		o.Coin, o.TargetPrice, o.UnlockTime, o.ID, store.FormatAmount(o.ActualAmount))
}
