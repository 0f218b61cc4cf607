package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"giftlist/cmd/internal/registry"
	v1 "giftlist/shared/contracts/registry/v1"
)

var (
	// ErrUnknownItem is returned by open_claim for an id not among the available gifts.
	ErrUnknownItem = errors.New("unknown gift")

	// ErrUnknownList is returned by page_next/page_prev for a list that does not exist.
	ErrUnknownList = registry.ErrUnknownList

	// ErrUnknownCommand is returned for a command name Do does not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is one view command. Only the fields the command reads are used.
type Command struct {
	Name   string
	GiftID string
	Text   string
	List   string
}

// CommandFromPayload maps the wire payload to a Command.
func CommandFromPayload(p v1.CommandPayload) Command {
	return Command{
		Name:   strings.TrimSpace(p.Command),
		GiftID: strings.TrimSpace(p.GiftID),
		Text:   p.Text,
		List:   strings.TrimSpace(p.List),
	}
}

// Do applies cmd to the session's view and publishes the resulting snapshot.
//
// add_gift without text submits the draft; confirm_claim with text first
// replaces the claimant input. Store failures come back as errors matching
// gift.ErrRequestFailed, after the view has already toasted them.
func (s *Session) Do(ctx context.Context, cmd Command) error {
	err := s.apply(ctx, cmd)
	if !errors.Is(err, ErrUnknownCommand) {
		s.publishView()
	}
	return err
}

func (s *Session) apply(ctx context.Context, cmd Command) error {
	v := s.View

	switch cmd.Name {
	case v1.CommandLoad:
		return v.Load(ctx)

	case v1.CommandSetDraft:
		v.SetDraftName(cmd.Text)
		return nil

	case v1.CommandAddGift:
		name := cmd.Text
		if name == "" {
			name = v.DraftName()
		}
		return v.AddItem(ctx, name)

	case v1.CommandOpenClaim:
		for _, it := range v.AvailableItems() {
			if it.ID == cmd.GiftID {
				v.OpenClaimDialog(it)
				return nil
			}
		}
		return fmt.Errorf("%w: %q", ErrUnknownItem, cmd.GiftID)

	case v1.CommandSetClaimant:
		v.SetClaimantName(cmd.Text)
		return nil

	case v1.CommandConfirmClaim:
		if cmd.Text != "" {
			v.SetClaimantName(cmd.Text)
		}
		return v.ConfirmPendingClaim(ctx)

	case v1.CommandCancelClaim:
		v.CancelClaimDialog()
		return nil

	case v1.CommandPageNext, v1.CommandPagePrev:
		list, ok := registry.ParseListID(cmd.List)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownList, cmd.List)
		}
		if cmd.Name == v1.CommandPageNext {
			return v.NextPage(list)
		}
		return v.PrevPage(list)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
}
