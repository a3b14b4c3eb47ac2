package conversation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/parse"
	"parking-bot-backend/internal/store"
)

// managedLot loads the lot the manager operates.
func (e *Engine) managedLot(ctx context.Context, t *turn) (model.ParkingLot, error) {
	if t.user.ManagedLotID == nil || *t.user.ManagedLotID == "" {
		return model.ParkingLot{}, fmt.Errorf("manager %s has no lot: %w", t.user.Address, store.ErrNotFound)
	}
	return e.lots.GetLot(ctx, *t.user.ManagedLotID)
}

// managerMenu shows the top-level manager menu.
func (e *Engine) managerMenu(ctx context.Context, t *turn) error {
	name := ""
	if lot, err := e.managedLot(ctx, t); err == nil {
		name = lot.Name
	}
	t.clearContext()
	t.say(e.msg.ManagerMenu(name))
	t.goTo(StepAwaitingMenuChoice)
	return nil
}

func (e *Engine) managerInitial(ctx context.Context, t *turn) error {
	if t.user.Name != "" {
		t.say(e.msg.Greeting(t.user.Name))
	}
	return e.managerMenu(ctx, t)
}

func (e *Engine) managerCommand(ctx context.Context, t *turn, cmd parse.Command) (bool, error) {
	if cmd.Kind == parse.CommandMenu {
		return true, e.managerMenu(ctx, t)
	}
	return false, nil
}

func (e *Engine) managerMenuChoice(ctx context.Context, t *turn) error {
	switch t.choice {
	case message.OptViewLotInfo:
		lot, err := e.managedLot(ctx, t)
		if err != nil {
			return err
		}
		t.say(e.msg.LotInfo(lot))
		return e.managerMenu(ctx, t)
	case message.OptUpdateCapacity:
		if _, err := e.managedLot(ctx, t); err != nil {
			return err
		}
		return e.showTierMenu(t)
	case message.OptExit:
		t.clearContext()
		t.say(e.msg.Farewell())
		t.goTo(StepInitial)
		return nil
	}
	name := ""
	if lot, err := e.managedLot(ctx, t); err == nil {
		name = lot.Name
	}
	t.say(e.invalid(t), e.msg.ManagerMenu(name))
	return nil
}

func (e *Engine) showTierMenu(t *turn) error {
	t.clearContext()
	t.say(e.msg.TierMenu())
	t.goTo(StepAwaitingCapacityChoice)
	return nil
}

func (e *Engine) managerCapacityChoice(ctx context.Context, t *turn) error {
	if t.choice == message.OptBack {
		return e.managerMenu(ctx, t)
	}

	opt, ok := parse.OptionID(t.choice)
	if !ok || opt.Prefix != message.PrefixTier || opt.Second != -1 {
		t.say(e.invalid(t), e.msg.TierMenu())
		return nil
	}
	tier, ok := model.TierByNumber(opt.First)
	if !ok {
		t.say(e.invalid(t), e.msg.TierMenu())
		return nil
	}

	lot, err := e.managedLot(ctx, t)
	if err != nil {
		return err
	}

	t.tc = e.freshContext(StepAwaitingCapacityChoice)
	t.tc.Tier = tier.Number
	t.say(e.msg.CapacityConfirmation(lot.Name, tier.Occupancy))
	t.goTo(StepAwaitingCapacityConfirmation)
	return nil
}

// stashedTier reads the tier chosen on the previous turn.
func (e *Engine) stashedTier(t *turn) (model.Tier, bool) {
	if !e.contextFrom(t.tc, StepAwaitingCapacityChoice) {
		return model.Tier{}, false
	}
	return model.TierByNumber(t.tc.Tier)
}

func (e *Engine) managerCapacityConfirmation(ctx context.Context, t *turn) error {
	switch t.choice {
	case message.OptReselectCapacity:
		return e.showTierMenu(t)
	case message.OptCancelCapacity:
		t.say(e.msg.CapacityCancelled())
		return e.managerMenu(ctx, t)
	}

	tier, ok := e.stashedTier(t)
	if !ok {
		t.say(e.msg.SelectionExpired())
		return e.showTierMenu(t)
	}
	lot, err := e.managedLot(ctx, t)
	if err != nil {
		return err
	}

	if t.choice != message.OptConfirmCapacity {
		// Keep the stash so the prompt can be repeated.
		t.say(e.invalid(t), e.msg.CapacityConfirmation(lot.Name, tier.Occupancy))
		return nil
	}

	_, notified, err := e.capacity.UpdateCapacity(ctx, lot.ID, tier.Occupancy)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"address":  t.user.Address,
		"lot_id":   lot.ID,
		"tier":     tier.Number,
		"notified": notified,
	}).Info("[CONVERSATION] capacity updated by manager")

	t.effect(EffectCapacityUpdated, lot.ID, notified)
	t.say(e.msg.CapacityUpdated(tier.Occupancy, notified))
	return e.managerMenu(ctx, t)
}
