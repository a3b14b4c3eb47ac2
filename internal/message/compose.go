package message

import (
	"fmt"
	"strings"
	"time"

	"parking-bot-backend/internal/model"
)

// TimeLayout is how timestamps are shown to chat users.
const TimeLayout = "02/01/2006 15:04"

// Composer turns domain state into payloads. It holds no mutable state.
type Composer struct {
	loc *time.Location
}

// NewComposer returns a Composer that renders timestamps in loc (UTC when nil).
func NewComposer(loc *time.Location) Composer {
	if loc == nil {
		loc = time.UTC
	}
	return Composer{loc: loc}
}

// FormatTime renders t in the composer's location.
func (c Composer) FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.In(c.loc).Format(TimeLayout)
}

// --- registration ---

func (c Composer) Welcome() Payload {
	return Text("Hi! Welcome to the parking availability service.")
}

func (c Composer) NamePrompt() Payload {
	return Text("It looks like you are not registered yet. Please send your name to sign up.")
}

func (c Composer) RegistrationConfirmed(name string) Payload {
	return Text(fmt.Sprintf("Thanks %s, you are now registered. Send any message to continue.", name))
}

func (c Composer) Greeting(name string) Payload {
	return Text(fmt.Sprintf("Hello again %s 👋🚘!", name))
}

func (c Composer) Farewell() Payload {
	return Text("Thanks for using the parking service. Send any message when you need us again.")
}

// --- menus ---

func (c Composer) DriverMenu() Payload {
	return Buttons("What would you like to do?",
		Option{ID: OptViewLots, Title: "View lots"},
		Option{ID: OptSubscriptions, Title: "Subscriptions"},
		Option{ID: OptExit, Title: "Exit"},
	)
}

func (c Composer) SubscriptionMenu() Payload {
	return List("Subscriptions", "Get a message when a lot has free spots.", "Options",
		Option{ID: OptSubscribeAll, Title: "All lots", Description: "Notify me about any lot"},
		Option{ID: OptSubscribeSpecific, Title: "A specific lot", Description: "Pick one lot to follow"},
		Option{ID: OptViewSubscriptions, Title: "My subscriptions", Description: "See or cancel what you follow"},
		Option{ID: OptUnsubscribeAll, Title: "Unsubscribe all", Description: "Stop every notification"},
		Option{ID: OptBack, Title: "Back", Description: "Return to the main menu"},
	)
}

func (c Composer) ManagerMenu(lotName string) Payload {
	body := "Manager menu. What would you like to do?"
	if lotName != "" {
		body = fmt.Sprintf("Manager menu for *%s*. What would you like to do?", lotName)
	}
	return Buttons(body,
		Option{ID: OptViewLotInfo, Title: "Lot info"},
		Option{ID: OptUpdateCapacity, Title: "Update capacity"},
		Option{ID: OptExit, Title: "Exit"},
	)
}

func (c Composer) TierMenu() Payload {
	rows := make([]Option, 0, len(model.Tiers)+1)
	for _, t := range model.Tiers {
		rows = append(rows, Option{ID: TierID(t.Number), Title: capitalize(t.Description), Description: t.RangeLabel})
	}
	rows = append(rows, Option{ID: OptBack, Title: "Back", Description: "Return to the manager menu"})
	return List("Update lot status", "How many free spots does the lot have right now?", "Choose status", rows...)
}

func (c Composer) CapacityConfirmation(lotName string, occ model.Occupancy) Payload {
	var b strings.Builder
	b.WriteString("⚠️ *Confirm update*\n\n")
	if lotName != "" {
		fmt.Fprintf(&b, "🅿️ Lot: %s\n", lotName)
	}
	fmt.Fprintf(&b, "📋 Status: %s\n", occ.Description)
	fmt.Fprintf(&b, "🚗 Availability: %s\n", occ.RangeLabel)
	if occ.Notifiable() {
		b.WriteString("\nSubscribed drivers will be notified.")
	}
	return Buttons(b.String(),
		Option{ID: OptConfirmCapacity, Title: "Confirm"},
		Option{ID: OptReselectCapacity, Title: "Choose again"},
		Option{ID: OptCancelCapacity, Title: "Cancel"},
	)
}

// --- lots ---

func (c Composer) SearchingLots() Payload {
	return Text("🅿️ Looking for lots with free spots...")
}

func (c Composer) NoLotsAvailable() Payload {
	return Text("There are no lots with free spots right now.")
}

func (c Composer) NoLotsToSubscribe() Payload {
	return Text("❌ There are no lots to subscribe to yet.")
}

// LotsPage lists one page of lots with free spots.
func (c Composer) LotsPage(lots []model.ParkingLot, page, totalPages int) Payload {
	rows := make([]Option, 0, len(lots)+3)
	for i, lot := range lots {
		rows = append(rows, Option{ID: LotRowID(page, i), Title: lot.Name, Description: availability(lot)})
	}
	rows = append(rows, pageRows(page, totalPages)...)
	rows = append(rows, Option{ID: OptBack, Title: "Back", Description: "Return to the main menu"})
	body := "Pick a lot to see its details."
	return List("Lots with free spots", body, "View lots", rows...).
		WithFooter(fmt.Sprintf("Page %d of %d", page, totalPages))
}

// SubscriptionLotsPage lists one page of lots a driver can follow.
func (c Composer) SubscriptionLotsPage(lots []model.ParkingLot, page, totalPages int) Payload {
	rows := make([]Option, 0, len(lots)+3)
	for i, lot := range lots {
		rows = append(rows, Option{ID: SubRowID(page, i), Title: lot.Name, Description: lot.Location})
	}
	rows = append(rows, pageRows(page, totalPages)...)
	rows = append(rows, Option{ID: OptBack, Title: "Back", Description: "Return to subscriptions"})
	return List("Subscribe to a lot", "Which lot do you want to follow?", "Choose lot", rows...).
		WithFooter(fmt.Sprintf("Page %d of %d", page, totalPages))
}

func pageRows(page, totalPages int) []Option {
	var rows []Option
	if page > 1 {
		rows = append(rows, Option{ID: PageID(page - 1), Title: "⬅️ Previous page"})
	}
	if page < totalPages {
		rows = append(rows, Option{ID: PageID(page + 1), Title: "➡️ Next page"})
	}
	return rows
}

func (c Composer) LotDetail(lot model.ParkingLot) Payload {
	return Text(fmt.Sprintf(`🅿️ *%s*

📍 *Location:*
%s

📊 *Current status:*
%s

🚗 *Availability:*
%s

🕐 *Last update:*
%s

💡 *Tip:* subscribe to this lot to get a message when it has free spots.`,
		lot.Name, lot.Location, status(lot), availability(lot), c.FormatTime(lot.LastUpdated)))
}

// LotInfo is the manager's view of their own lot.
func (c Composer) LotInfo(lot model.ParkingLot) Payload {
	hasSpots := "No"
	if lot.HasSpots {
		hasSpots = "Yes"
	}
	state := lot.Description
	if state == "" {
		state = "Full"
		if lot.HasSpots {
			state = "Available"
		}
	}
	return Text(fmt.Sprintf(`🏢 *Lot information*

📍 *Name:* %s
📌 *Location:* %s
🚗 *Capacity:* %d
📊 *Current status:* %s
🅿️ *Availability:* %s
✅ *Has spots:* %s
🕐 *Last update:* %s`,
		lot.Name, lot.Location, lot.Capacity, state, availability(lot), hasSpots, c.FormatTime(lot.LastUpdated)))
}

// --- subscriptions ---

func (c Composer) SubscribedAll(created bool) Payload {
	if !created {
		return Text("ℹ️ You are already subscribed to all lots.")
	}
	return Text("✅ You will be notified when any lot has free spots.")
}

func (c Composer) Subscribed(lotName string, created bool) Payload {
	if !created {
		return Text(fmt.Sprintf("ℹ️ You are already subscribed to %s.", lotName))
	}
	return Text(fmt.Sprintf("✅ You will be notified when %s has free spots.", lotName))
}

func (c Composer) UnsubscribedAll(n int64) Payload {
	if n == 0 {
		return Text("ℹ️ You had no active subscriptions.")
	}
	return Text(fmt.Sprintf("✅ Cancelled %d subscription(s). You will not receive more notifications.", n))
}

func (c Composer) Unsubscribed(label string) Payload {
	return Text(fmt.Sprintf("✅ You will no longer be notified about %s.", label))
}

func (c Composer) NoSubscriptions() Payload {
	return Text("ℹ️ You have no active subscriptions.")
}

// SubscriptionsList shows active subscriptions with one unsubscribe row each.
// Only the first MaxListRows-2 fit; the unsubscribe command reaches the rest.
func (c Composer) SubscriptionsList(labels []string) Payload {
	limit := MaxListRows - 2
	rows := make([]Option, 0, MaxListRows)
	for i, label := range labels {
		if i == limit {
			break
		}
		rows = append(rows, Option{ID: UnsubRowID(i), Title: label, Description: "Tap to unsubscribe"})
	}
	rows = append(rows,
		Option{ID: OptUnsubAll, Title: "Unsubscribe all", Description: "Stop every notification"},
		Option{ID: OptBack, Title: "Back", Description: "Return to subscriptions"},
	)
	body := fmt.Sprintf("You follow %d lot(s):\n%s", len(labels), numbered(labels))
	return List("My subscriptions", body, "Manage", rows...)
}

// UnsubscribeHelp explains the unsubscribe command and lists what can be cancelled.
func (c Composer) UnsubscribeHelp(labels []string) Payload {
	if len(labels) == 0 {
		return Text("ℹ️ You have no active subscriptions.")
	}
	return Text(fmt.Sprintf(`📋 *Your subscriptions*
%s

Send "unsubscribe all" to cancel everything, or "unsubscribe N" to cancel one.`, numbered(labels)))
}

// --- capacity ---

func (c Composer) CapacityUpdated(occ model.Occupancy, notified int) Payload {
	return Text(fmt.Sprintf(`✅ *Capacity updated*

📋 *Status:* %s
🅿️ *Approximate spots:* %s
📢 *Notifications sent:* %d

%s`, occ.Description, occ.RangeLabel, notified, audience(notified)))
}

func (c Composer) CapacityCancelled() Payload {
	return Text("Update cancelled. Nothing was changed.")
}

func audience(n int) string {
	switch {
	case n == 0:
		return "ℹ️ No drivers are subscribed right now."
	case n == 1:
		return "👤 1 driver was notified."
	case n <= 5:
		return fmt.Sprintf("👥 %d drivers were notified.", n)
	default:
		return fmt.Sprintf("🚨 %d drivers were notified. High demand!", n)
	}
}

// LotAvailable is the notification fanned out to subscribers.
func (c Composer) LotAvailable(lot model.ParkingLot) Payload {
	return Text(fmt.Sprintf(`🚗 *Spots available!* 🅿️

*%s*
📍 %s
📊 %s
🚗 %s

Hurry before they are gone.`, lot.Name, lot.Location, status(lot), availability(lot)))
}

// --- errors ---

func (c Composer) InvalidOption() Payload {
	return Text("❌ Option not recognized. Please choose one from the menu:")
}

func (c Composer) InvalidNumber() Payload {
	return Text("❌ Invalid number. Please choose one from the menu:")
}

func (c Composer) SelectionExpired() Payload {
	return Text("⌛ That list is out of date. Here is the current one:")
}

func (c Composer) InvalidName() Payload {
	return Text("Please send your name as a text message.")
}

func (c Composer) NotFound() Payload {
	return Text("❌ We could not find what you were looking for.")
}

func (c Composer) NoManagedLot() Payload {
	return Text("❌ You have no lot assigned. Please contact support.")
}

func (c Composer) GenericFailure() Payload {
	return Text("😕 Sorry, something went wrong. Please try again.")
}

func (c Composer) RoleNotRecognized() Payload {
	return Text("❌ Role not recognized. Please contact support.")
}

func status(lot model.ParkingLot) string {
	if lot.Description != "" {
		return lot.Description
	}
	return "spots available"
}

func availability(lot model.ParkingLot) string {
	if lot.RangeLabel != "" {
		return lot.RangeLabel
	}
	return fmt.Sprintf("~%d spots", lot.FreeEstimate)
}

func numbered(labels []string) string {
	var b strings.Builder
	for i, l := range labels {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
