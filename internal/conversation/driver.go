package conversation

import (
	"context"
	"errors"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/parse"
	"parking-bot-backend/internal/store"
)

// driverMenu shows the top-level driver menu.
func (e *Engine) driverMenu(_ context.Context, t *turn) error {
	t.clearContext()
	t.say(e.msg.DriverMenu())
	t.goTo(StepAwaitingMenuChoice)
	return nil
}

func (e *Engine) driverInitial(ctx context.Context, t *turn) error {
	if t.user.Name != "" {
		t.say(e.msg.Greeting(t.user.Name))
	}
	return e.driverMenu(ctx, t)
}

// driverCommand handles the free-text commands drivers may send at any step.
func (e *Engine) driverCommand(ctx context.Context, t *turn, cmd parse.Command) (bool, error) {
	switch cmd.Kind {
	case parse.CommandMenu:
		return true, e.driverMenu(ctx, t)
	case parse.CommandUnsubscribe:
		return true, e.unsubscribeCommand(ctx, t, cmd)
	}
	return false, nil
}

func (e *Engine) driverMenuChoice(ctx context.Context, t *turn) error {
	switch t.choice {
	case message.OptViewLots:
		t.say(e.msg.SearchingLots())
		return e.showLotsPage(ctx, t, 1)
	case message.OptSubscriptions:
		return e.showSubscriptionMenu(ctx, t)
	case message.OptExit:
		t.clearContext()
		t.say(e.msg.Farewell())
		t.goTo(StepInitial)
		return nil
	}
	t.say(e.invalid(t), e.msg.DriverMenu())
	return nil
}

// showLotsPage renders one page of lots with free spots and stashes its ids.
func (e *Engine) showLotsPage(ctx context.Context, t *turn, page int) error {
	lots, err := e.lots.ListLotsWithAvailableSpots(ctx)
	if err != nil {
		return err
	}
	pages := pageCount(len(lots), e.pageSize)
	if pages == 0 {
		t.say(e.msg.NoLotsAvailable())
		return e.driverMenu(ctx, t)
	}
	page = clampPage(page, pages)
	shown := pageSlice(lots, page, e.pageSize)

	t.tc = e.freshContext(StepViewingLots)
	t.tc.Page = page
	t.tc.LotIDs = lotIDs(shown)
	t.say(e.msg.LotsPage(shown, page, pages))
	t.goTo(StepViewingLots)
	return nil
}

func (e *Engine) driverViewingLots(ctx context.Context, t *turn) error {
	if t.choice == message.OptBack {
		return e.driverMenu(ctx, t)
	}

	fresh := e.contextFrom(t.tc, StepViewingLots)
	current := 1
	if fresh {
		current = t.tc.Page
	}

	opt, ok := parse.OptionID(t.choice)
	if !ok {
		t.say(e.invalid(t))
		return e.showLotsPage(ctx, t, current)
	}

	switch opt.Prefix {
	case message.PrefixPage:
		return e.showLotsPage(ctx, t, opt.First)
	case message.PrefixLot:
		if !fresh {
			t.say(e.msg.SelectionExpired())
			return e.showLotsPage(ctx, t, current)
		}
		lotID, ok := pickRow(t.tc, opt.First, opt.Second)
		if !ok {
			t.say(e.msg.SelectionExpired())
			return e.showLotsPage(ctx, t, current)
		}
		lot, err := e.lots.GetLot(ctx, lotID)
		if errors.Is(err, store.ErrNotFound) {
			t.say(e.msg.NotFound())
			return e.showLotsPage(ctx, t, current)
		}
		if err != nil {
			return err
		}
		t.say(e.msg.LotDetail(lot))
		return e.showLotsPage(ctx, t, current)
	}

	t.say(e.invalid(t))
	return e.showLotsPage(ctx, t, current)
}
