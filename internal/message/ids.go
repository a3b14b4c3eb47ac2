package message

import "fmt"

// Option ids understood by the conversation engine.
const (
	OptViewLots          = "view_lots"
	OptSubscriptions     = "subscriptions"
	OptExit              = "exit"
	OptSubscribeAll      = "subscribe_all"
	OptSubscribeSpecific = "subscribe_specific"
	OptViewSubscriptions = "view_subscriptions"
	OptUnsubscribeAll    = "unsubscribe_all"
	OptBack              = "back"

	OptUnsubAll = "unsub_all"

	OptViewLotInfo      = "view_lot_info"
	OptUpdateCapacity   = "update_capacity"
	OptConfirmCapacity  = "confirm_capacity"
	OptReselectCapacity = "reselect_capacity"
	OptCancelCapacity   = "cancel_capacity"
)

// Row id prefixes; parse.OptionID splits them back apart.
const (
	PrefixLot   = "lot"
	PrefixSub   = "sub"
	PrefixUnsub = "unsub"
	PrefixPage  = "page"
	PrefixTier  = "tier"
)

// LotRowID identifies row i of lots page page.
func LotRowID(page, i int) string { return fmt.Sprintf("%s_%d_%d", PrefixLot, page, i) }

// SubRowID identifies row i of subscription selection page page.
func SubRowID(page, i int) string { return fmt.Sprintf("%s_%d_%d", PrefixSub, page, i) }

// UnsubRowID identifies the i-th listed subscription.
func UnsubRowID(i int) string { return fmt.Sprintf("%s_%d", PrefixUnsub, i) }

// PageID requests page n of the current listing.
func PageID(n int) string { return fmt.Sprintf("%s_%d", PrefixPage, n) }

// TierID identifies occupancy tier n.
func TierID(n int) string { return fmt.Sprintf("%s_%d", PrefixTier, n) }
