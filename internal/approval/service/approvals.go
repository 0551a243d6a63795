package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/approval/models"
	authmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/auth/models"
	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	omodels "github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/requestcontext"
)

// selectItems resolves ids to priced rows of the order.
func (s *Service) selectItems(ctx context.Context, orderID id.OrderID, itemIDs []id.OrderItemID) ([]*omodels.OrderItem, error) {
	rows, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order items")
	}
	byID := make(map[id.OrderItemID]*omodels.OrderItem, len(rows))
	for _, it := range rows {
		byID[it.ID] = it
	}
	selected := make([]*omodels.OrderItem, 0, len(itemIDs))
	for _, itemID := range models.UniqueItemIDs(itemIDs) {
		it, ok := byID[itemID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "item "+itemID.String()+" does not belong to the order")
		}
		if it.IsHeader() || it.Type != cmodels.ItemLine {
			return nil, dErrors.New(dErrors.CodeValidation, "item "+itemID.String()+" is not a priced line item")
		}
		selected = append(selected, it)
	}
	return selected, nil
}

// Create opens a draft approval for a vendor over a selection of order items.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.OrderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "order_id is required")
	}
	if req.VendorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "vendor_id is required")
	}

	var created *models.Approval
	err := s.run(ctx, "create", func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, req.OrderID)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "order not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
		}
		v, err := s.vendors.FindByID(ctx, req.VendorID)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "vendor not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vendor")
		}
		if err := v.CanReceiveApprovals(); err != nil {
			return err
		}
		selected, err := s.selectItems(ctx, o.ID, req.ItemIDs)
		if err != nil {
			return err
		}

		t := now(ctx)
		ref, err := s.approvals.NextReference(ctx, t.Year())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate reference number")
		}
		a := &models.Approval{
			ID:          id.NewApprovalID(),
			ReferenceNo: ref,
			OrderID:     o.ID,
			CustomerID:  o.CustomerID,
			VendorID:    v.ID,
			Stage:       models.StageDraft,
			Notes:       sanitizeNotes(req.Notes),
			CreatedBy:   requestcontext.UserID(ctx),
			CreatedAt:   t,
			UpdatedAt:   t,
			Items:       []models.ApprovalItem{},
		}
		a.AppendItems(selected)
		if err := s.approvals.Create(ctx, a); err != nil {
			return s.storeError(err)
		}
		created = a

		e := entry(hmodels.ChangeApprovalCreated, a)
		e.FieldName = "reference_no"
		e.NewValue = fmt.Sprintf("%s (%s, %d items)", a.ReferenceNo, v.Name, len(a.Items))
		return s.record(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition("", string(models.StageDraft))
	}
	s.logAudit(ctx, "approval_created",
		"approval_id", created.ID.String(),
		"reference_no", created.ReferenceNo,
		"order_id", created.OrderID.String(),
		"vendor_id", created.VendorID.String(),
	)
	return models.NewDetail(created), nil
}

func (s *Service) Get(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error) {
	a, err := s.load(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	return models.NewDetail(a), nil
}

// List returns approvals matching filter. Vendor users only ever see their
// own vendor's approvals regardless of the requested vendor.
func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Detail, error) {
	if filter.Stage != "" && !filter.Stage.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "stage must be draft, negotiating or approved")
	}
	actor := requestcontext.Actor(ctx)
	switch role := authmodels.Role(actor.Role); {
	case role == authmodels.RoleVendor:
		if actor.VendorID.IsNil() {
			return nil, dErrors.New(dErrors.CodeForbidden, "user is not linked to a vendor")
		}
		filter.VendorID = actor.VendorID
	case !role.IsStaff():
		return nil, dErrors.New(dErrors.CodeForbidden, "not allowed to view approvals")
	}
	approvals, err := s.approvals.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list approvals")
	}
	out := make([]*models.Detail, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, models.NewDetail(a))
	}
	return out, nil
}

// AddItems snapshots more order items into the approval. Items already
// selected are ignored. While negotiating this clears both sign-offs.
func (s *Service) AddItems(ctx context.Context, approvalID id.ApprovalID, req *models.ItemsRequest) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.change(ctx, "add_items", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanEdit(); err != nil {
			return nil, err
		}
		selected, err := s.selectItems(ctx, a.OrderID, req.ItemIDs)
		if err != nil {
			return nil, err
		}
		added := a.AppendItems(selected)
		if len(added) == 0 {
			return nil, errUnchanged
		}
		a.UpdatedAt = now(ctx)
		entries := make([]hmodels.Entry, 0, len(added))
		for i := range added {
			e := entry(hmodels.ChangeApprovalItemUpdate, a)
			e.OrderItemID = added[i].OrderItemID
			e.RowIndex = hmodels.Row(added[i].Position)
			e.FieldName = "items"
			e.NewValue = hmodels.Summarize(added[i].HistoryFields())
			entries = append(entries, e)
		}
		return append(entries, s.clearedEntries(a)...), nil
	})
}

// RemoveItem drops a snapshot. While negotiating this clears both sign-offs.
func (s *Service) RemoveItem(ctx context.Context, approvalID id.ApprovalID, itemID id.ApprovalItemID) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	return s.change(ctx, "remove_item", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanEdit(); err != nil {
			return nil, err
		}
		removed, ok := a.RemoveItem(itemID)
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, "approval item not found")
		}
		a.UpdatedAt = now(ctx)
		e := entry(hmodels.ChangeApprovalItemUpdate, a)
		e.OrderItemID = removed.OrderItemID
		e.RowIndex = hmodels.Row(removed.Position)
		e.FieldName = "items"
		e.OldValue = hmodels.Summarize(removed.HistoryFields())
		return append([]hmodels.Entry{e}, s.clearedEntries(a)...), nil
	})
}

// SetNegotiatedAmount sets or clears an item's negotiated vendor amount.
// Either party may do this while negotiating; it clears both sign-offs.
func (s *Service) SetNegotiatedAmount(ctx context.Context, approvalID id.ApprovalID, itemID id.ApprovalItemID, req *models.NegotiatedAmountRequest) (*models.Detail, error) {
	if _, err := partyOf(ctx); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.change(ctx, "set_negotiated_amount", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanSetNegotiatedAmount(); err != nil {
			return nil, err
		}
		it, ok := a.FindItem(itemID)
		if !ok {
			return nil, dErrors.New(dErrors.CodeNotFound, "approval item not found")
		}
		const field = "negotiated_vendor_amount"
		before := hmodels.NullMoney(field, it.NegotiatedVendorAmount)
		if req.Amount == nil {
			it.NegotiatedVendorAmount.Valid = false
		} else {
			it.NegotiatedVendorAmount.Valid = true
			it.NegotiatedVendorAmount.Decimal = req.Amount.Round(2)
		}
		after := hmodels.NullMoney(field, it.NegotiatedVendorAmount)
		changes := hmodels.Diff([]hmodels.Field{before}, []hmodels.Field{after})
		if len(changes) == 0 {
			return nil, errUnchanged
		}
		a.UpdatedAt = now(ctx)
		base := entry(hmodels.ChangeApprovalItemUpdate, a)
		base.OrderItemID = it.OrderItemID
		base.RowIndex = hmodels.Row(it.Position)
		return append(hmodels.Expand(base, changes), s.clearedEntries(a)...), nil
	})
}

// SetNotes replaces the approval notes. Markup is stripped.
func (s *Service) SetNotes(ctx context.Context, approvalID id.ApprovalID, req *models.NotesRequest) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.change(ctx, "set_notes", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanEdit(); err != nil {
			return nil, err
		}
		notes := sanitizeNotes(req.Notes)
		changes := hmodels.Diff([]hmodels.Field{hmodels.Text("notes", a.Notes)}, []hmodels.Field{hmodels.Text("notes", notes)})
		if len(changes) == 0 {
			return nil, errUnchanged
		}
		a.Notes = notes
		a.UpdatedAt = now(ctx)
		return hmodels.Expand(entry(hmodels.ChangeApprovalItemUpdate, a), changes), nil
	})
}

// Send moves a draft to negotiating.
func (s *Service) Send(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	return s.change(ctx, "send", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanSend(); err != nil {
			return nil, err
		}
		a.ApplySend(now(ctx))
		return []hmodels.Entry{stageEntry(a, string(models.StageDraft), string(models.StageNegotiating))}, nil
	})
}

// ReturnToDraft moves a negotiation back to draft, clearing sign-offs.
func (s *Service) ReturnToDraft(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	return s.change(ctx, "return_to_draft", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanReturnToDraft(); err != nil {
			return nil, err
		}
		cleared := a.ApplyReturnToDraft(now(ctx))
		entries := []hmodels.Entry{stageEntry(a, string(models.StageNegotiating), string(models.StageDraft))}
		for _, p := range cleared {
			entries = append(entries, signEntry(a, p, false))
		}
		return entries, nil
	})
}

// Approve records the caller's sign-off. The second sign-off approves the
// approval, after which it is read-only.
func (s *Service) Approve(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error) {
	party, err := partyOf(ctx)
	if err != nil {
		return nil, err
	}
	detail, err := s.change(ctx, "approve", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanSign(party); err != nil {
			return nil, err
		}
		entries := []hmodels.Entry{signEntry(a, party, true)}
		if a.ApplySign(party, requestcontext.UserID(ctx), now(ctx)) {
			entries = append(entries, stageEntry(a, string(models.StageNegotiating), string(models.StageApproved)))
		}
		return entries, nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.IncrementSignOff(string(party), "sign")
	}
	return detail, err
}

// Withdraw removes the caller's sign-off while negotiating.
func (s *Service) Withdraw(ctx context.Context, approvalID id.ApprovalID) (*models.Detail, error) {
	party, err := partyOf(ctx)
	if err != nil {
		return nil, err
	}
	detail, err := s.change(ctx, "withdraw", approvalID, func(ctx context.Context, a *models.Approval) ([]hmodels.Entry, error) {
		if err := a.CanWithdraw(party); err != nil {
			return nil, err
		}
		a.ApplyWithdraw(party, now(ctx))
		return []hmodels.Entry{signEntry(a, party, false)}, nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.IncrementSignOff(string(party), "withdraw")
	}
	return detail, err
}

// Delete removes a draft approval. The history entries are kept.
func (s *Service) Delete(ctx context.Context, approvalID id.ApprovalID) error {
	if err := requireManager(ctx); err != nil {
		return err
	}
	var deleted *models.Approval
	err := s.run(ctx, "delete", func(ctx context.Context) error {
		a, err := s.load(ctx, approvalID)
		if err != nil {
			return err
		}
		if err := a.CanDelete(); err != nil {
			return err
		}
		if err := s.approvals.Delete(ctx, a.ID); err != nil {
			return s.storeError(err)
		}
		deleted = a
		return s.record(ctx, stageEntry(a, string(a.Stage), "deleted"))
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "approval_deleted", "approval_id", deleted.ID.String(), "reference_no", deleted.ReferenceNo)
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
