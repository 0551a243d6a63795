package service

import (
	"context"
	"strconv"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/validation"
)

func itemEntry(t hmodels.ChangeType, o *models.Order, it *models.OrderItem) hmodels.Entry {
	e := orderEntry(t, o)
	e.OrderItemID = it.ID
	e.RowIndex = hmodels.Row(it.RowIndex)
	return e
}

func (s *Service) loadItem(ctx context.Context, orderID id.OrderID, itemID id.OrderItemID) (*models.OrderItem, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, storeError(err, "order item not found", "failed to load order item")
	}
	if it.OrderID != orderID {
		return nil, dErrors.New(dErrors.CodeNotFound, "order item not found")
	}
	return it, nil
}

// UpdateItem edits cells of one row and records a cell_edit entry per changed
// cell, tagged with the row index.
func (s *Service) UpdateItem(ctx context.Context, orderID id.OrderID, itemID id.OrderItemID, req *models.UpdateItemRequest) (*models.OrderItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var updated *models.OrderItem
	err := s.mutate(ctx, "update_item", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		it, err := s.loadItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		before := it.HistoryFields()
		req.Apply(it)
		updated = it
		changes := hmodels.Diff(before, it.HistoryFields())
		if len(changes) == 0 {
			return nil
		}
		if err := s.items.Update(ctx, it); err != nil {
			return storeError(err, "order item not found", "failed to update order item")
		}
		return s.record(ctx, hmodels.Expand(itemEntry(hmodels.ChangeCellEdit, o, it), changes)...)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceItems saves the whole spreadsheet. Rows are matched by id: rows
// without an id are added, stored rows missing from the request are deleted
// and matched rows are updated. Row indexes follow request order.
func (s *Service) ReplaceItems(ctx context.Context, orderID id.OrderID, req *models.ReplaceItemsRequest) ([]*models.OrderItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var result []*models.OrderItem
	err := s.mutate(ctx, "replace_items", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		existing, err := s.listItems(ctx, orderID)
		if err != nil {
			return err
		}
		stored := make(map[id.OrderItemID]*models.OrderItem, len(existing))
		for _, it := range existing {
			stored[it.ID] = it
		}

		next := make([]*models.OrderItem, 0, len(req.Items))
		seen := make(map[id.OrderItemID]bool, len(req.Items))
		for i, in := range req.Items {
			itemID := id.NewOrderItemID()
			if in.ID != "" {
				parsed, err := id.ParseOrderItemID(in.ID)
				if err != nil {
					return dErrors.New(dErrors.CodeValidation, "items["+strconv.Itoa(i)+"].id is not a valid id")
				}
				if _, ok := stored[parsed]; !ok {
					return dErrors.New(dErrors.CodeValidation, "items["+strconv.Itoa(i)+"].id does not belong to this order")
				}
				if seen[parsed] {
					return dErrors.New(dErrors.CodeValidation, "items["+strconv.Itoa(i)+"].id appears more than once")
				}
				seen[parsed] = true
				itemID = parsed
			}
			next = append(next, in.ToItem(itemID, orderID))
		}
		models.Resequence(next)

		var (
			entries []hmodels.Entry
			created []*models.OrderItem
		)
		for _, old := range existing {
			if seen[old.ID] {
				continue
			}
			if err := s.items.Delete(ctx, old.ID); err != nil {
				return storeError(err, "order item not found", "failed to delete order item")
			}
			e := itemEntry(hmodels.ChangeRowDelete, o, old)
			e.OldValue = hmodels.Summarize(old.HistoryFields())
			entries = append(entries, e)
		}
		for _, it := range next {
			old, ok := stored[it.ID]
			if !ok {
				created = append(created, it)
				e := itemEntry(hmodels.ChangeRowAdd, o, it)
				e.NewValue = hmodels.Summarize(it.HistoryFields())
				entries = append(entries, e)
				continue
			}
			changes := hmodels.Diff(old.HistoryFields(), it.HistoryFields())
			if len(changes) == 0 && old.RowIndex == it.RowIndex {
				continue
			}
			if err := s.items.Update(ctx, it); err != nil {
				return storeError(err, "order item not found", "failed to update order item")
			}
			entries = append(entries, hmodels.Expand(itemEntry(hmodels.ChangeRowUpdate, o, it), changes)...)
		}
		if len(created) > 0 {
			if err := s.items.CreateMany(ctx, created); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order items")
			}
		}
		result = next
		return s.record(ctx, entries...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddItem inserts one row at req.Position, appending when the position is
// missing or past the end, and shifts the rows below it.
func (s *Service) AddItem(ctx context.Context, orderID id.OrderID, req *models.AddItemRequest) (*models.OrderItem, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var added *models.OrderItem
	err := s.mutate(ctx, "add_item", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		items, err := s.listItems(ctx, orderID)
		if err != nil {
			return err
		}
		pos := len(items)
		if req.Position != nil && *req.Position < pos {
			pos = *req.Position
		}
		added = req.Item.ToItem(id.NewOrderItemID(), orderID)
		items = append(items[:pos], append([]*models.OrderItem{added}, items[pos:]...)...)
		if err := s.resequence(ctx, items, added.ID); err != nil {
			return err
		}
		if err := s.items.CreateMany(ctx, []*models.OrderItem{added}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order item")
		}
		e := itemEntry(hmodels.ChangeRowAdd, o, added)
		e.NewValue = hmodels.Summarize(added.HistoryFields())
		return s.record(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// DeleteItem removes one row and closes the gap in row indexes.
func (s *Service) DeleteItem(ctx context.Context, orderID id.OrderID, itemID id.OrderItemID) error {
	return s.mutate(ctx, "delete_item", func(ctx context.Context) error {
		o, _, err := s.loadEditableOrder(ctx, orderID)
		if err != nil {
			return err
		}
		it, err := s.loadItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if err := s.items.Delete(ctx, itemID); err != nil {
			return storeError(err, "order item not found", "failed to delete order item")
		}
		rest, err := s.listItems(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.resequence(ctx, rest, id.OrderItemID{}); err != nil {
			return err
		}
		e := itemEntry(hmodels.ChangeRowDelete, o, it)
		e.OldValue = hmodels.Summarize(it.HistoryFields())
		return s.record(ctx, e)
	})
}

// resequence renumbers items 0..n-1 and persists rows whose index moved,
// except skip, which the caller has not stored yet.
func (s *Service) resequence(ctx context.Context, items []*models.OrderItem, skip id.OrderItemID) error {
	for i, it := range items {
		if it.RowIndex == i && it.ID != skip {
			continue
		}
		it.RowIndex = i
		if it.ID == skip {
			continue
		}
		if err := s.items.Update(ctx, it); err != nil {
			return storeError(err, "order item not found", "failed to renumber order items")
		}
	}
	return nil
}
