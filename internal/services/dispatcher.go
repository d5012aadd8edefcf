// Package services – Dispatcher
//
// This file implements the send orchestration: validate the recipient, scan
// the body for an embedded trigger/event reference and item-image directives,
// decide post-vs-update through the reply store, call the chat API, attach a
// rendered graph when requested, and persist the new mapping.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"zbx-rc/internal/config"
	"zbx-rc/internal/repo"
	"zbx-rc/internal/rocketchat"
)

// ChatAPI is the subset of the Rocket.Chat client the dispatcher consumes.
type ChatAPI interface {
	PostMessage(ctx context.Context, channel, text string) (rocketchat.Posted, error)
	UpdateMessage(ctx context.Context, roomID, msgID, text string) error
	UploadFile(ctx context.Context, roomID, path, description string) error
}

// GraphSource renders a metric graph for a set of item ids and returns the
// path of a temporary image file owned by the caller.
type GraphSource interface {
	Render(ctx context.Context, itemIDs []int64, title string) (string, error)
}

// Dispatcher coordinates one send operation against the chat API, the
// monitoring frontend, and the reply store. It holds no connection state;
// the store is opened per send and closed before Send returns.
type Dispatcher struct {
	Cfg    config.Config
	Chat   ChatAPI
	Graphs GraphSource
}

// Send forwards one alert notification. A notification whose body carries a
// trigger/event pair already recorded in the reply store updates the previous
// message in place; anything else posts a new message. Graph directives are
// honored on the post path only: the first post carries the graph, updates
// are text-only.
func (d *Dispatcher) Send(ctx context.Context, recipient, subject, body string) error {
	lg := log.With().
		Str("send_id", uuid.NewString()).
		Str("recipient", recipient).
		Logger()

	if len(recipient) == 0 || (recipient[0] != '@' && recipient[0] != '#') {
		return ErrBadRecipient
	}

	ref, hasRef := extractTriggerEvent(body)
	itemIDs, text := extractItemDirectives(body)
	display := fmt.Sprintf("*%s*\n%s", strings.TrimSpace(subject), text)

	if hasRef {
		return d.sendTracked(ctx, lg, recipient, subject, display, ref, itemIDs)
	}
	return d.sendNew(ctx, lg, nil, recipient, subject, display, ref, itemIDs)
}

// sendTracked handles bodies carrying a trigger/event pair: it opens the
// reply store, updates the recorded message when one exists, and otherwise
// posts a new message and records it.
func (d *Dispatcher) sendTracked(ctx context.Context, lg zerolog.Logger, recipient, subject, display string, ref alertRef, itemIDs []int64) error {
	lg = lg.With().Int64("trigger_id", ref.TriggerID).Int64("event_id", ref.EventID).Logger()

	db, err := repo.Open(d.Cfg.StorePath)
	if err != nil {
		return pkgerrors.Wrapf(err, "cannot open reply store %q", d.Cfg.StorePath)
	}
	defer repo.Close(db)

	prev, err := repo.FindByTriggerEvent(db, ref.TriggerID, ref.EventID)
	switch {
	case err == nil:
		if err := d.Chat.UpdateMessage(ctx, prev.RoomID, prev.ID, display); err != nil {
			return err
		}
		lg.Info().Str("msg_id", prev.ID).Str("room_id", prev.RoomID).Msg("updated existing message")
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return d.sendNew(ctx, lg, db, recipient, subject, display, ref, itemIDs)
	default:
		return err
	}
}

// sendNew posts a fresh message, attaches the graph when directives were
// present, and records the mapping when db is non-nil (a trigger/event pair
// was extracted). Bodies with no pair never touch the store.
func (d *Dispatcher) sendNew(ctx context.Context, lg zerolog.Logger, db *gorm.DB, recipient, subject, display string, ref alertRef, itemIDs []int64) error {
	posted, err := d.Chat.PostMessage(ctx, recipient, display)
	if err != nil {
		return err
	}
	lg.Info().Str("msg_id", posted.MessageID).Str("room_id", posted.RoomID).Msg("posted message")

	if len(itemIDs) > 0 {
		d.attachGraph(ctx, lg, posted.RoomID, itemIDs, subject)
	}

	if db != nil {
		if err := repo.CreateReply(db, posted.MessageID, ref.TriggerID, ref.EventID, posted.RoomID); err != nil {
			return pkgerrors.Wrap(err, "message sent but could not be recorded")
		}
	}
	return nil
}

// attachGraph renders and uploads a graph image. Every failure here is
// non-fatal: the text message already stands, so render and upload problems
// only produce warnings. The temporary file is removed on all exit paths.
func (d *Dispatcher) attachGraph(ctx context.Context, lg zerolog.Logger, roomID string, itemIDs []int64, title string) {
	if d.Graphs == nil {
		return
	}
	path, err := d.Graphs.Render(ctx, itemIDs, title)
	if err != nil {
		lg.Warn().Err(err).Ints64("item_ids", itemIDs).Msg("graph not attached")
		return
	}
	defer os.Remove(path)

	if err := d.Chat.UploadFile(ctx, roomID, path, title); err != nil {
		lg.Warn().Err(err).Str("room_id", roomID).Msg("graph upload failed, message sent without image")
		return
	}
	lg.Info().Str("room_id", roomID).Ints64("item_ids", itemIDs).Msg("graph attached")
}
