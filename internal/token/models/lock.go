package models

import (
	"time"

	id "assetup/pkg/domain"
)

// Lock freezes a holder's entire balance of one asset until a timestamp.
// Locks gate burn and transfer only; voting weight and dividend share still
// count the locked balance.
type Lock struct {
	AssetID id.AssetID   `json:"asset_id"`
	Holder  id.Principal `json:"holder"`
	Until   time.Time    `json:"until"`
}

// Active reports whether the lock still binds at the given ledger time.
func (l *Lock) Active(now time.Time) bool {
	return l.Until.After(now)
}
