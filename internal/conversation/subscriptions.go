package conversation

import (
	"context"
	"errors"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/parse"
	"parking-bot-backend/internal/store"
)

func (e *Engine) showSubscriptionMenu(_ context.Context, t *turn) error {
	t.clearContext()
	t.say(e.msg.SubscriptionMenu())
	t.goTo(StepAwaitingSubscriptionChoice)
	return nil
}

func (e *Engine) driverSubscriptionChoice(ctx context.Context, t *turn) error {
	switch t.choice {
	case message.OptSubscribeAll:
		_, created, err := e.ledger.CreateOrGetSubscription(ctx, t.user.Address, nil)
		if err != nil {
			return err
		}
		if created {
			t.effect(EffectSubscribed, "", 1)
		}
		t.say(e.msg.SubscribedAll(created))
		return e.driverMenu(ctx, t)
	case message.OptSubscribeSpecific:
		return e.showSubscriptionLotsPage(ctx, t, 1)
	case message.OptViewSubscriptions:
		return e.showSubscriptions(ctx, t)
	case message.OptUnsubscribeAll:
		return e.unsubscribeAll(ctx, t)
	case message.OptBack:
		return e.driverMenu(ctx, t)
	}
	t.say(e.invalid(t), e.msg.SubscriptionMenu())
	return nil
}

// showSubscriptionLotsPage lists every lot, a page at a time, for subscribing.
func (e *Engine) showSubscriptionLotsPage(ctx context.Context, t *turn, page int) error {
	lots, err := e.lots.ListLots(ctx)
	if err != nil {
		return err
	}
	pages := pageCount(len(lots), e.pageSize)
	if pages == 0 {
		t.say(e.msg.NoLotsToSubscribe())
		return e.showSubscriptionMenu(ctx, t)
	}
	page = clampPage(page, pages)
	shown := pageSlice(lots, page, e.pageSize)

	t.tc = e.freshContext(StepAwaitingLotForSubscription)
	t.tc.Page = page
	t.tc.LotIDs = lotIDs(shown)
	t.say(e.msg.SubscriptionLotsPage(shown, page, pages))
	t.goTo(StepAwaitingLotForSubscription)
	return nil
}

func (e *Engine) driverLotForSubscription(ctx context.Context, t *turn) error {
	if t.choice == message.OptBack {
		return e.showSubscriptionMenu(ctx, t)
	}

	fresh := e.contextFrom(t.tc, StepAwaitingLotForSubscription)
	current := 1
	if fresh {
		current = t.tc.Page
	}

	opt, ok := parse.OptionID(t.choice)
	if !ok {
		t.say(e.invalid(t))
		return e.showSubscriptionLotsPage(ctx, t, current)
	}

	switch opt.Prefix {
	case message.PrefixPage:
		return e.showSubscriptionLotsPage(ctx, t, opt.First)
	case message.PrefixSub:
		lotID, ok := pickRow(t.tc, opt.First, opt.Second)
		if !fresh || !ok {
			t.say(e.msg.SelectionExpired())
			return e.showSubscriptionLotsPage(ctx, t, current)
		}
		lot, err := e.lots.GetLot(ctx, lotID)
		if errors.Is(err, store.ErrNotFound) {
			t.say(e.msg.NotFound())
			return e.showSubscriptionLotsPage(ctx, t, current)
		}
		if err != nil {
			return err
		}
		_, created, err := e.ledger.CreateOrGetSubscription(ctx, t.user.Address, &lot.ID)
		if err != nil {
			return err
		}
		if created {
			t.effect(EffectSubscribed, lot.ID, 1)
		}
		t.say(e.msg.Subscribed(lot.Name, created))
		return e.driverMenu(ctx, t)
	}

	t.say(e.invalid(t))
	return e.showSubscriptionLotsPage(ctx, t, current)
}

// showSubscriptions lists the driver's active subscriptions with per-row unsubscribe.
func (e *Engine) showSubscriptions(ctx context.Context, t *turn) error {
	subs, err := e.ledger.ListActiveForDriver(ctx, t.user.Address)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		t.say(e.msg.NoSubscriptions())
		return e.showSubscriptionMenu(ctx, t)
	}
	labels := e.subscriptionLabels(ctx, subs)

	t.tc = e.freshContext(StepManagingSubscriptions)
	t.tc.Targets = make([]string, len(subs))
	for i, s := range subs {
		t.tc.Targets[i] = s.TargetKey
	}
	t.say(e.msg.SubscriptionsList(labels))
	t.goTo(StepManagingSubscriptions)
	return nil
}

func (e *Engine) driverManagingSubscriptions(ctx context.Context, t *turn) error {
	switch t.choice {
	case message.OptBack:
		return e.showSubscriptionMenu(ctx, t)
	case message.OptUnsubAll:
		return e.unsubscribeAll(ctx, t)
	}

	opt, ok := parse.OptionID(t.choice)
	if !ok || opt.Prefix != message.PrefixUnsub {
		t.say(e.invalid(t))
		return e.showSubscriptions(ctx, t)
	}
	if !e.contextFrom(t.tc, StepManagingSubscriptions) || opt.First >= len(t.tc.Targets) {
		t.say(e.msg.SelectionExpired())
		return e.showSubscriptions(ctx, t)
	}
	return e.unsubscribeTarget(ctx, t, t.tc.Targets[opt.First])
}

func (e *Engine) unsubscribeAll(ctx context.Context, t *turn) error {
	n, err := e.ledger.DeactivateAllForDriver(ctx, t.user.Address)
	if err != nil {
		return err
	}
	if n > 0 {
		t.effect(EffectUnsubscribed, "", int(n))
	}
	t.say(e.msg.UnsubscribedAll(n))
	return e.driverMenu(ctx, t)
}

// unsubscribeTarget cancels one subscription given its target key.
func (e *Engine) unsubscribeTarget(ctx context.Context, t *turn, target string) error {
	var lotID *string
	if target != model.AllLotsTarget {
		lotID = &target
	}
	ok, err := e.ledger.Deactivate(ctx, t.user.Address, lotID)
	if err != nil {
		return err
	}
	if !ok {
		t.say(e.msg.SelectionExpired())
		return e.showSubscriptions(ctx, t)
	}
	effectLot := ""
	if lotID != nil {
		effectLot = *lotID
	}
	t.effect(EffectUnsubscribed, effectLot, 1)
	t.say(e.msg.Unsubscribed(e.targetLabel(ctx, target)))
	return e.driverMenu(ctx, t)
}

// unsubscribeCommand handles "unsubscribe", "unsubscribe all" and "unsubscribe N".
func (e *Engine) unsubscribeCommand(ctx context.Context, t *turn, cmd parse.Command) error {
	if cmd.All {
		return e.unsubscribeAll(ctx, t)
	}

	subs, err := e.ledger.ListActiveForDriver(ctx, t.user.Address)
	if err != nil {
		return err
	}
	if cmd.Help() {
		t.say(e.msg.UnsubscribeHelp(e.subscriptionLabels(ctx, subs)))
		return e.driverMenu(ctx, t)
	}
	if cmd.Index > len(subs) {
		t.say(e.msg.InvalidNumber(), e.msg.UnsubscribeHelp(e.subscriptionLabels(ctx, subs)))
		return e.driverMenu(ctx, t)
	}
	return e.unsubscribeTarget(ctx, t, subs[cmd.Index-1].TargetKey)
}

func (e *Engine) subscriptionLabels(ctx context.Context, subs []model.Subscription) []string {
	labels := make([]string, len(subs))
	for i, s := range subs {
		labels[i] = e.targetLabel(ctx, s.TargetKey)
	}
	return labels
}

func (e *Engine) targetLabel(ctx context.Context, target string) string {
	if target == model.AllLotsTarget {
		return "All lots"
	}
	lot, err := e.lots.GetLot(ctx, target)
	if err != nil {
		return "A lot no longer listed"
	}
	return lot.Name
}
