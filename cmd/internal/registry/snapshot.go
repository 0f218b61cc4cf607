package registry

import (
	"time"

	"giftlist/cmd/internal/gift"
)

// Snapshot is an immutable render of a View, with every label localized.
type Snapshot struct {
	Title            string
	Subtitle         string
	Loaded           bool
	Draft            string
	DraftPlaceholder string
	AddLabel         string
	Available        PageView
	Selected         PageView
	Dialog           *DialogView
}

// PageView is the visible page of one list.
type PageView struct {
	List         ListID
	Title        string
	Items        []ItemView
	Index        int
	Total        int
	ShowControls bool
	CanPrev      bool
	CanNext      bool
	Label        string
	EmptyText    string
}

// ItemView is one row. Action is the claim button label for available rows;
// Caption is the "selected by" line for claimed rows.
type ItemView struct {
	ID         string
	Name       string
	Selected   bool
	SelectedBy string
	CreatedAt  time.Time
	Action     string
	Caption    string
}

// DialogView is the open claim confirmation overlay.
type DialogView struct {
	Item            ItemView
	Title           string
	Prompt          string
	Claimant        string
	NamePlaceholder string
	CancelLabel     string
	ConfirmLabel    string
}

// Snapshot renders the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	items := v.items
	loaded := v.loaded
	draft := v.draftName
	claimant := v.claimantName
	availablePage := v.availablePage
	selectedPage := v.selectedPage
	var pending *gift.Item
	if v.pending != nil {
		p := *v.pending
		pending = &p
	}
	v.mu.Unlock()

	// items is replaced wholesale and never mutated in place, so reading it
	// after unlock is safe.
	m := v.msgs
	s := Snapshot{
		Title:            m.Text(MsgTitle),
		Subtitle:         m.Text(MsgSubtitle),
		Loaded:           loaded,
		Draft:            draft,
		DraftPlaceholder: m.Text(MsgDraftPlaceholder),
		AddLabel:         m.Text(MsgAddButton),
		Available:        v.pageView(ListAvailable, filterSelected(items, false), availablePage),
		Selected:         v.pageView(ListSelected, filterSelected(items, true), selectedPage),
	}
	if pending != nil {
		s.Dialog = &DialogView{
			Item:            v.itemView(*pending),
			Title:           m.Text(MsgDialogTitle),
			Prompt:          m.Text(MsgDialogPrompt, pending.Name),
			Claimant:        claimant,
			NamePlaceholder: m.Text(MsgNamePlaceholder),
			CancelLabel:     m.Text(MsgCancel),
			ConfirmLabel:    m.Text(MsgConfirm),
		}
	}
	return s
}

func (v *View) pageView(list ListID, items []gift.Item, page int) PageView {
	total := TotalPages(len(items))
	pv := PageView{
		List:         list,
		Index:        page,
		Total:        total,
		ShowControls: total > 1,
		CanPrev:      page != 1,
		CanNext:      page != total,
		Label:        v.msgs.Text(MsgPageLabel, page, total),
	}
	if list == ListSelected {
		pv.Title = v.msgs.Text(MsgSelectedTitle)
		pv.EmptyText = v.msgs.Text(MsgSelectedEmpty)
	} else {
		pv.Title = v.msgs.Text(MsgAvailableTitle)
		pv.EmptyText = v.msgs.Text(MsgAvailableEmpty)
	}

	visible := Paginate(items, page)
	pv.Items = make([]ItemView, 0, len(visible))
	for _, it := range visible {
		pv.Items = append(pv.Items, v.itemView(it))
	}
	return pv
}

func (v *View) itemView(it gift.Item) ItemView {
	iv := ItemView{
		ID:         it.ID,
		Name:       it.Name,
		Selected:   it.Selected,
		SelectedBy: it.ClaimedBy(),
		CreatedAt:  it.CreatedAt,
	}
	if it.Selected {
		iv.Caption = v.msgs.Text(MsgSelectedBy, iv.SelectedBy)
	} else {
		iv.Action = v.msgs.Text(MsgClaimButton)
	}
	return iv
}
