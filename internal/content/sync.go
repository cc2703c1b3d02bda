package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"folio/api/internal/store"
	"folio/api/internal/util"
)

// SyncReport summarizes one relation fan-out. Failed counts counterpart
// writes that errored after the primary save succeeded; those documents
// self-heal on the next re-save of either side.
type SyncReport struct {
	ID       string `json:"id"`
	Upserted int    `json:"upserted"`
	Removed  int    `json:"removed"`
	Failed   int    `json:"failed"`
}

// saveWithRelations is the save path shared by every relatable kind:
// assign identity and manual order, persist the document, then make
// every counterpart's reverse-relation array consistent with the new
// declarations.
//
// The fan-out is a sequence of independent read-modify-write calls with
// no cross-document transaction and no locking. Two concurrent saves
// touching the same counterpart can lose one update; accepted risk.
func (r *Repository) saveWithRelations(ctx context.Context, e relatable) (SyncReport, error) {
	kind := e.entityKind()
	collection := kind.Collection()
	isNew := e.entityID() == ""
	if isNew {
		id, err := r.newEntityID(ctx, e)
		if err != nil {
			return SyncReport{}, err
		}
		e.setEntityID(id)
	}
	id := e.entityID()

	var oldRaw json.RawMessage
	if !isNew {
		raw, err := r.store.Get(ctx, collection, id)
		switch {
		case err == nil:
			oldRaw = raw
		case errors.Is(err, store.ErrNotFound):
			// Client sent an id the store never saw; treat as create.
		default:
			return SyncReport{}, fmt.Errorf("load prior %s/%s: %w", collection, id, err)
		}
	}

	// Manual-order policy: keep the incoming value, else the prior one,
	// else backfill with the trailing slot. Posts are exempt.
	if kind != KindPost && e.sortOrderValue() == nil {
		if prior := rawSortOrder(oldRaw); prior != nil {
			e.setSortOrderValue(*prior)
		} else {
			next, err := r.nextSortOrder(ctx, collection)
			if err != nil {
				return SyncReport{}, err
			}
			e.setSortOrderValue(next)
		}
	}

	doc, err := json.Marshal(e)
	if err != nil {
		return SyncReport{}, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := r.store.Set(ctx, collection, id, doc); err != nil {
		return SyncReport{}, fmt.Errorf("save %s/%s: %w", collection, id, err)
	}

	if post, ok := e.(*Post); ok {
		if err := r.mergeTags(ctx, post.Tags); err != nil {
			log.Printf("content: merge tags for post %s: %v", id, err)
		}
	}

	report := r.syncRelations(ctx, kind, id, e.stub(), flattenRelations(kind, doc), flattenRelations(kind, oldRaw))
	report.ID = id
	return report, nil
}

func (r *Repository) newEntityID(ctx context.Context, e relatable) (string, error) {
	if p, ok := e.(*Project); ok {
		return r.uniqueProjectID(ctx, p.Title)
	}
	return util.NewID(""), nil
}

// syncRelations applies the diff between prior and current references.
// Every current reference is upserted unconditionally (redundant writes
// beat field-diffing here); references present before but gone now get
// their stub removed. A reference in both sets is only ever upserted.
// Missing counterparts are broken references and skipped silently;
// other per-counterpart failures are logged and do not stop siblings.
func (r *Repository) syncRelations(ctx context.Context, kind Kind, id string, stub RelatedItemStub, current, prior []RelatedItemStub) SyncReport {
	var report SyncReport
	rev := reverseField[kind]

	for _, ref := range current {
		collection := ref.Type.Collection()
		if collection == "" {
			log.Printf("content: skipping relation with unknown type %q on %s/%s", ref.Type, kind, id)
			continue
		}
		err := r.upsertStub(ctx, collection, ref.ID, rev, stub)
		switch {
		case err == nil:
			report.Upserted++
		case errors.Is(err, store.ErrNotFound):
		default:
			report.Failed++
			log.Printf("content: sync %s/%s -> %s/%s: %v", kind, id, collection, ref.ID, err)
		}
	}

	for _, ref := range prior {
		if containsRef(current, ref.ID) {
			continue
		}
		collection := ref.Type.Collection()
		if collection == "" {
			continue
		}
		err := r.removeStub(ctx, collection, ref.ID, rev, id)
		switch {
		case err == nil:
			report.Removed++
		case errors.Is(err, store.ErrNotFound):
		default:
			report.Failed++
			log.Printf("content: unsync %s/%s -> %s/%s: %v", kind, id, collection, ref.ID, err)
		}
	}
	return report
}

// upsertStub replaces the stub with a matching id in the counterpart's
// reverse array, or appends it, preserving array position on replace.
func (r *Repository) upsertStub(ctx context.Context, collection, counterpartID, field string, stub RelatedItemStub) error {
	list, err := r.loadStubList(ctx, collection, counterpartID, field)
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == stub.ID {
			list[i] = stub
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, stub)
	}
	return r.writeStubList(ctx, collection, counterpartID, field, list)
}

// removeStub filters the stub with the given id out of the
// counterpart's reverse array.
func (r *Repository) removeStub(ctx context.Context, collection, counterpartID, field, id string) error {
	list, err := r.loadStubList(ctx, collection, counterpartID, field)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, item := range list {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}
	return r.writeStubList(ctx, collection, counterpartID, field, filtered)
}

func (r *Repository) loadStubList(ctx context.Context, collection, id, field string) ([]RelatedItemStub, error) {
	raw, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	var list []RelatedItemStub
	if data, ok := doc[field]; ok {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode %s/%s %s: %w", collection, id, field, err)
		}
	}
	return list, nil
}

func (r *Repository) writeStubList(ctx context.Context, collection, id, field string, list []RelatedItemStub) error {
	if list == nil {
		list = []RelatedItemStub{}
	}
	value, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s/%s %s: %w", collection, id, field, err)
	}
	return r.store.UpdateField(ctx, collection, id, field, value)
}

// DeleteWithRelations removes the entity's stub from every counterpart
// it references, then deletes the document. Kinds without relations
// delete directly. Returns store.ErrNotFound if the entity is absent.
func (r *Repository) DeleteWithRelations(ctx context.Context, collection, id string) error {
	raw, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	if kind, ok := kindOf[collection]; ok {
		rev := reverseField[kind]
		for _, ref := range flattenRelations(kind, raw) {
			refCollection := ref.Type.Collection()
			if refCollection == "" {
				continue
			}
			err := r.removeStub(ctx, refCollection, ref.ID, rev, id)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Printf("content: delete cascade %s/%s -> %s/%s: %v", collection, id, refCollection, ref.ID, err)
			}
		}
	}

	if err := r.store.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func containsRef(refs []RelatedItemStub, id string) bool {
	for _, ref := range refs {
		if ref.ID == id {
			return true
		}
	}
	return false
}
