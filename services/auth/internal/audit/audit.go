// Package audit records security-relevant session events. Sinks never fail
// the request that produced the event.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Skotchmaster/registry_portal/pkg/logging"
	"github.com/google/uuid"
)

type Type string

const (
	LoginSucceeded  Type = "login_succeeded"
	LoginFailed     Type = "login_failed"
	RefreshRotated  Type = "refresh_rotated"
	RefreshRejected Type = "refresh_rejected"
	ReuseDetected   Type = "refresh_reuse_detected"
	FamilyRevoked   Type = "family_revoked"
	UserCreated     Type = "user_created"
	RoleChanged     Type = "role_changed"
	UserDeactivated Type = "user_deactivated"
)

type Event struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	At       time.Time `json:"at"`
	UserID   string    `json:"userId,omitempty"`
	ActorID  string    `json:"actorId,omitempty"`
	FamilyID string    `json:"familyId,omitempty"`
	Email    string    `json:"email,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	IP       string    `json:"ip,omitempty"`
}

// Key groups events of one subject together.
func (e Event) Key() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}

type Sink interface {
	Record(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// LogSink writes events through the request logger.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, e Event) error {
	l := logging.FromContext(ctx)
	lvl := slog.LevelInfo
	switch e.Type {
	case ReuseDetected:
		lvl = slog.LevelError
	case LoginFailed, RefreshRejected:
		lvl = slog.LevelWarn
	}
	l.Log(ctx, lvl, "audit",
		"event", string(e.Type),
		"event_id", e.ID,
		"user_id", e.UserID,
		"actor_id", e.ActorID,
		"family_id", e.FamilyID,
		"reason", e.Reason,
	)
	return nil
}

// Multi fans an event out to every sink and logs the ones that fail.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			logging.FromContext(ctx).Error("audit_sink_failed", "event", string(e.Type), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
