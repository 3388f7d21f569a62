package admin

import (
	"context"
	"errors"
	"fmt"

	"imagenbot/internal/state"
)

// Action is the one outstanding multi-step admin operation.
type Action string

const (
	ActionNone      Action = ""
	ActionBroadcast Action = "broadcast"
	ActionSetLimit  Action = "set_limit"
	ActionBanFlow   Action = "ban_flow"
	ActionSetToken  Action = "set_token"
)

// PendingActions scopes the keyed store to admin pending state: at most
// one action per admin identity, last write wins.
type PendingActions struct {
	kv state.KeyedStore
}

func NewPendingActions(kv state.KeyedStore) *PendingActions {
	return &PendingActions{kv: kv}
}

func pendingKey(adminID int64) string {
	return fmt.Sprintf("pending_action:%d", adminID)
}

func (p *PendingActions) Get(ctx context.Context, adminID int64) (Action, error) {
	v, err := p.kv.Get(ctx, pendingKey(adminID))
	if errors.Is(err, state.ErrNotFound) {
		return ActionNone, nil
	}
	if err != nil {
		return ActionNone, err
	}
	return Action(v), nil
}

func (p *PendingActions) Set(ctx context.Context, adminID int64, a Action) error {
	return p.kv.Set(ctx, pendingKey(adminID), string(a))
}

func (p *PendingActions) Clear(ctx context.Context, adminID int64) error {
	return p.kv.Delete(ctx, pendingKey(adminID))
}
