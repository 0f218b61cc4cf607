package session

import (
	"giftlist/cmd/internal/registry"
	v1 "giftlist/shared/contracts/registry/v1"
)

// RenderView converts a snapshot to its wire form.
func RenderView(s registry.Snapshot) v1.ViewPayload {
	out := v1.ViewPayload{
		Title:            s.Title,
		Subtitle:         s.Subtitle,
		Loaded:           s.Loaded,
		Draft:            s.Draft,
		DraftPlaceholder: s.DraftPlaceholder,
		AddLabel:         s.AddLabel,
		Available:        renderList(s.Available),
		Selected:         renderList(s.Selected),
	}
	if d := s.Dialog; d != nil {
		out.Dialog = &v1.ClaimDialogPayload{
			Gift:            renderGift(d.Item),
			Title:           d.Title,
			Prompt:          d.Prompt,
			Claimant:        d.Claimant,
			NamePlaceholder: d.NamePlaceholder,
			CancelLabel:     d.CancelLabel,
			ConfirmLabel:    d.ConfirmLabel,
		}
	}
	return out
}

// RenderNotification converts a toast to its wire form.
func RenderNotification(n registry.Notification) v1.NotificationPayload {
	return v1.NotificationPayload{
		Level:   string(n.Level),
		Message: n.Message,
		At:      n.At,
	}
}

// RenderNotifications converts toasts, never returning nil.
func RenderNotifications(ns []registry.Notification) []v1.NotificationPayload {
	out := make([]v1.NotificationPayload, 0, len(ns))
	for _, n := range ns {
		out = append(out, RenderNotification(n))
	}
	return out
}

func renderList(p registry.PageView) v1.ListPayload {
	items := make([]v1.GiftPayload, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, renderGift(it))
	}
	return v1.ListPayload{
		List:         string(p.List),
		Title:        p.Title,
		Items:        items,
		Page:         p.Index,
		TotalPages:   p.Total,
		ShowControls: p.ShowControls,
		CanPrev:      p.CanPrev,
		CanNext:      p.CanNext,
		PageLabel:    p.Label,
		EmptyText:    p.EmptyText,
	}
}

func renderGift(it registry.ItemView) v1.GiftPayload {
	g := v1.GiftPayload{
		ID:        it.ID,
		Name:      it.Name,
		Selected:  it.Selected,
		CreatedAt: it.CreatedAt,
		Action:    it.Action,
		Caption:   it.Caption,
	}
	if it.Selected {
		by := it.SelectedBy
		g.SelectedBy = &by
	}
	return g
}
