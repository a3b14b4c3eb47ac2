package conversation

import (
	"context"

	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/model"
	"parking-bot-backend/internal/parse"
)

// register creates the user on first contact. New users start as drivers.
func (e *Engine) register(ctx context.Context, in Input) (*Result, error) {
	log := logrus.WithField("address", in.Address)

	created, err := e.dir.CreateUserIfAbsent(ctx, in.Address, model.RoleDriver, model.RegistrationAwaitingName)
	if err != nil {
		log.Errorf("[CONVERSATION] create user: %v", err)
		return e.reply(in.Address, e.msg.GenericFailure()), nil
	}
	if !created {
		// A concurrent delivery created the user and already greeted them.
		log.Debug("[CONVERSATION] user created concurrently, halting")
		return &Result{}, nil
	}

	// Remember the first message so a redelivery is not taken as the name.
	if in.MessageID != "" {
		if err := e.dir.MarkMessage(ctx, in.Address, in.MessageID); err != nil {
			log.Warnf("[CONVERSATION] mark message: %v", err)
		}
	}

	log.Info("[CONVERSATION] new user, asking for name")
	res := e.reply(in.Address, e.msg.Welcome(), e.msg.NamePrompt())
	res.Effects = append(res.Effects, Effect{Kind: EffectUserCreated})
	return res, nil
}

// completeRegistration takes the inbound text as the user's name.
func (e *Engine) completeRegistration(ctx context.Context, user model.User, in Input) (*Result, error) {
	log := logrus.WithField("address", user.Address)

	if in.Kind != InputText {
		e.markMessage(ctx, user.Address, in.MessageID)
		return e.reply(user.Address, e.msg.NamePrompt()), nil
	}
	name, err := parse.Name(in.Value)
	if err != nil {
		e.markMessage(ctx, user.Address, in.MessageID)
		return e.reply(user.Address, e.msg.InvalidName(), e.msg.NamePrompt()), nil
	}

	if err := e.dir.SetName(ctx, user.Address, name); err != nil {
		log.Errorf("[CONVERSATION] set name: %v", err)
		return e.reply(user.Address, e.msg.GenericFailure(), e.msg.NamePrompt()), nil
	}
	if user.Role == model.RoleUnknown || user.Role == "" {
		if err := e.dir.SetRole(ctx, user.Address, model.RoleDriver); err != nil {
			log.Errorf("[CONVERSATION] set role: %v", err)
			return e.reply(user.Address, e.msg.GenericFailure(), e.msg.NamePrompt()), nil
		}
	}
	if err := e.dir.SetRegistrationStatus(ctx, user.Address, model.RegistrationComplete); err != nil {
		log.Errorf("[CONVERSATION] complete registration: %v", err)
		return e.reply(user.Address, e.msg.GenericFailure(), e.msg.NamePrompt()), nil
	}
	if err := e.dir.SaveConversation(ctx, user.Address, string(StepInitial), model.TransientContext{}, in.MessageID); err != nil {
		log.Errorf("[CONVERSATION] reset step: %v", err)
	}

	log.WithField("name", name).Info("[CONVERSATION] registration complete")
	res := e.reply(user.Address, e.msg.RegistrationConfirmed(name))
	res.Effects = append(res.Effects, Effect{Kind: EffectRegistered})
	return res, nil
}

func (e *Engine) markMessage(ctx context.Context, address, messageID string) {
	if messageID == "" {
		return
	}
	if err := e.dir.MarkMessage(ctx, address, messageID); err != nil {
		logrus.WithField("address", address).Warnf("[CONVERSATION] mark message: %v", err)
	}
}
