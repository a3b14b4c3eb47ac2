package conversation

// Step is a role-scoped conversation state stored on the user.
type Step string

// Steps shared by both roles.
const (
	StepInitial            Step = "initial"
	StepAwaitingMenuChoice Step = "awaiting_menu_choice"
)

// Driver steps.
const (
	StepViewingLots                Step = "viewing_lots"
	StepAwaitingSubscriptionChoice Step = "awaiting_subscription_choice"
	StepAwaitingLotForSubscription Step = "awaiting_lot_selection_for_subscription"
	StepManagingSubscriptions      Step = "managing_subscriptions"
)

// Manager steps.
const (
	StepAwaitingCapacityChoice       Step = "awaiting_capacity_choice"
	StepAwaitingCapacityConfirmation Step = "awaiting_capacity_confirmation"
)

// InputKind is the shape of a normalized inbound message.
type InputKind string

const (
	InputText        InputKind = "text"
	InputButtonReply InputKind = "button_reply"
	InputListReply   InputKind = "list_reply"
)

// Input is one normalized inbound chat event.
type Input struct {
	Address   string
	MessageID string
	Kind      InputKind
	// Value is the text body, or the option id of a button or list reply.
	Value string
}

// EffectKind names a persistent side effect of a turn.
type EffectKind string

const (
	EffectUserCreated     EffectKind = "user_created"
	EffectRegistered      EffectKind = "registered"
	EffectSubscribed      EffectKind = "subscribed"
	EffectUnsubscribed    EffectKind = "unsubscribed"
	EffectCapacityUpdated EffectKind = "capacity_updated"
)

// Effect records a side effect applied while processing an input.
type Effect struct {
	Kind  EffectKind
	LotID string
	// Count is the number of subscriptions touched or drivers notified.
	Count int
}
