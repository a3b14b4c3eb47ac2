package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/message"
	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/parse"
	"parking-bot-backend/internal/store"
)

// CapacityUpdater commits an occupancy change and reports how many drivers were notified.
type CapacityUpdater interface {
	UpdateCapacity(ctx context.Context, lotID string, occ model.Occupancy) (model.ParkingLot, int, error)
}

// Options tunes the engine.
type Options struct {
	PageSize   int
	ContextTTL time.Duration
}

// Result is what one inbound message produced.
type Result struct {
	Messages []message.Outbound
	Effects  []Effect
}

// Engine runs the driver and manager conversations. All state lives in the
// stores; an Engine is safe for concurrent use.
type Engine struct {
	dir      store.Directory
	lots     store.LotRegistry
	ledger   store.SubscriptionLedger
	capacity CapacityUpdater
	msg      message.Composer
	pageSize int
	ttl      time.Duration
	now      func() time.Time

	driverSteps  map[Step]handlerFunc
	managerSteps map[Step]handlerFunc
}

type handlerFunc func(ctx context.Context, t *turn) error

// NewEngine wires an engine to its stores.
func NewEngine(dir store.Directory, lots store.LotRegistry, ledger store.SubscriptionLedger, capacity CapacityUpdater, composer message.Composer, opts Options) *Engine {
	if opts.PageSize <= 0 || opts.PageSize > maxPageSize {
		opts.PageSize = maxPageSize
	}
	e := &Engine{
		dir:      dir,
		lots:     lots,
		ledger:   ledger,
		capacity: capacity,
		msg:      composer,
		pageSize: opts.PageSize,
		ttl:      opts.ContextTTL,
		now:      time.Now,
	}
	e.driverSteps = map[Step]handlerFunc{
		StepInitial:                    e.driverInitial,
		StepAwaitingMenuChoice:         e.driverMenuChoice,
		StepViewingLots:                e.driverViewingLots,
		StepAwaitingSubscriptionChoice: e.driverSubscriptionChoice,
		StepAwaitingLotForSubscription: e.driverLotForSubscription,
		StepManagingSubscriptions:      e.driverManagingSubscriptions,
	}
	e.managerSteps = map[Step]handlerFunc{
		StepInitial:                      e.managerInitial,
		StepAwaitingMenuChoice:           e.managerMenuChoice,
		StepAwaitingCapacityChoice:       e.managerCapacityChoice,
		StepAwaitingCapacityConfirmation: e.managerCapacityConfirmation,
	}
	return e
}

// turn accumulates the outcome of one inbound message.
type turn struct {
	user    model.User
	in      Input
	choice  string
	step    Step
	tc      model.TransientContext
	out     []message.Payload
	effects []Effect
}

func (t *turn) say(p ...message.Payload) { t.out = append(t.out, p...) }

func (t *turn) goTo(step Step) { t.step = step }

func (t *turn) clearContext() { t.tc = model.TransientContext{} }

func (t *turn) effect(kind EffectKind, lotID string, count int) {
	t.effects = append(t.effects, Effect{Kind: kind, LotID: lotID, Count: count})
}

func (t *turn) result() *Result {
	res := &Result{Effects: t.effects}
	for _, p := range t.out {
		res.Messages = append(res.Messages, message.Outbound{To: t.user.Address, Payload: p})
	}
	return res
}

// Process applies one inbound message to the sender's conversation.
// Re-processing an already applied message id is a no-op.
func (e *Engine) Process(ctx context.Context, in Input) (*Result, error) {
	in.Value = strings.TrimSpace(in.Value)
	if in.Address == "" {
		return nil, errors.New("input has no address")
	}

	user, err := e.dir.GetUser(ctx, in.Address)
	if errors.Is(err, store.ErrNotFound) {
		return e.register(ctx, in)
	}
	if err != nil {
		logrus.WithField("address", in.Address).Errorf("[CONVERSATION] load user: %v", err)
		return e.reply(in.Address, e.msg.GenericFailure()), nil
	}

	if in.MessageID != "" && user.LastMessageID == in.MessageID {
		logrus.WithFields(logrus.Fields{"address": in.Address, "message_id": in.MessageID}).
			Debug("[CONVERSATION] duplicate message ignored")
		return &Result{}, nil
	}

	if user.Registration != model.RegistrationComplete {
		return e.completeRegistration(ctx, user, in)
	}

	t := &turn{
		user: user,
		in:   in,
		step: Step(user.Step),
		tc:   user.Context,
	}
	t.choice = e.resolveChoice(user.Context, in)

	if err := e.run(ctx, t); err != nil {
		e.recoverTurn(t, err)
	}

	if len(t.out) > 0 && t.out[len(t.out)-1].Interactive() {
		t.tc.Options = t.out[len(t.out)-1].OptionIDs()
	} else {
		t.tc.Options = nil
	}
	if err := e.dir.SaveConversation(ctx, user.Address, string(t.step), t.tc, in.MessageID); err != nil {
		logrus.WithFields(logrus.Fields{"address": user.Address, "step": t.step}).
			Errorf("[CONVERSATION] save conversation: %v", err)
	}
	return t.result(), nil
}

// run dispatches the turn on the user's role, converting panics into errors.
func (e *Engine) run(ctx context.Context, t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in step %s: %v", t.step, r)
		}
	}()

	switch t.user.Role {
	case model.RoleDriver:
		return e.dispatch(ctx, t, e.driverSteps, e.driverCommand, e.driverMenu)
	case model.RoleManager:
		return e.dispatch(ctx, t, e.managerSteps, e.managerCommand, e.managerMenu)
	case model.RoleUnknown:
		t.say(e.msg.RoleNotRecognized())
		t.goTo(StepInitial)
		t.clearContext()
		return nil
	default:
		return fmt.Errorf("unexpected role %q", t.user.Role)
	}
}

func (e *Engine) dispatch(ctx context.Context, t *turn, steps map[Step]handlerFunc, command func(context.Context, *turn, parse.Command) (bool, error), fallback handlerFunc) error {
	if t.in.Kind == InputText {
		if cmd := parse.ParseCommand(t.in.Value); cmd.Kind != parse.CommandNone {
			handled, err := command(ctx, t, cmd)
			if handled || err != nil {
				return err
			}
		}
	}

	handler, ok := steps[t.step]
	if !ok {
		logrus.WithFields(logrus.Fields{"address": t.user.Address, "step": t.step}).
			Warn("[CONVERSATION] unknown step, showing menu")
		return fallback(ctx, t)
	}
	return handler(ctx, t)
}

// recoverTurn replaces the turn's output with an apology and the role menu.
func (e *Engine) recoverTurn(t *turn, err error) {
	log := logrus.WithFields(logrus.Fields{"address": t.user.Address, "step": t.step})
	t.out = nil
	if errors.Is(err, store.ErrNotFound) {
		log.Warnf("[CONVERSATION] %v", err)
		t.say(e.msg.NotFound())
	} else {
		log.Errorf("[CONVERSATION] step failed: %v", err)
		t.say(e.msg.GenericFailure())
	}
	t.clearContext()
	switch t.user.Role {
	case model.RoleManager:
		t.say(e.msg.ManagerMenu(""))
		t.goTo(StepAwaitingMenuChoice)
	case model.RoleDriver:
		t.say(e.msg.DriverMenu())
		t.goTo(StepAwaitingMenuChoice)
	default:
		t.goTo(StepInitial)
	}
}

// resolveChoice maps a numeric text reply to the option shown at that
// position in the last menu; other inputs pass through unchanged.
func (e *Engine) resolveChoice(tc model.TransientContext, in Input) string {
	if in.Kind != InputText {
		return in.Value
	}
	if n, ok := parse.Number(in.Value); ok && n <= len(tc.Options) {
		return tc.Options[n-1]
	}
	return strings.ToLower(in.Value)
}

func (e *Engine) reply(address string, p ...message.Payload) *Result {
	res := &Result{}
	for _, payload := range p {
		res.Messages = append(res.Messages, message.Outbound{To: address, Payload: payload})
	}
	return res
}

// freshContext starts a context owned by producer.
func (e *Engine) freshContext(producer Step) model.TransientContext {
	return model.TransientContext{Producer: string(producer), IssuedAt: e.now().UTC()}
}

// contextFrom reports whether tc was written by producer and is still fresh.
func (e *Engine) contextFrom(tc model.TransientContext, producer Step) bool {
	return tc.Producer == string(producer) && !tc.Expired(e.now(), e.ttl)
}

// invalid picks the error annotation for input no handler accepted.
func (e *Engine) invalid(t *turn) message.Payload {
	if t.in.Kind == InputText {
		if _, ok := parse.Number(t.in.Value); ok {
			return e.msg.InvalidNumber()
		}
	}
	return e.msg.InvalidOption()
}
