package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-call-history/docstore"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var _ docstore.Collection = (*Collection)(nil)

// Collection is one named collection of a Store. Filters are evaluated in
// process with docstore.Match after loading the collection's rows.
type Collection struct {
	store *Store
	name  string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Find returns matching documents in insertion order.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter) ([]docstore.Document, error) {
	rows, err := c.rows(ctx, c.store.db)
	if err != nil {
		return nil, err
	}

	out := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeBody(row.Body)
		if err != nil {
			return nil, err
		}
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// InsertOne stores a copy of doc. A random UUID string becomes the _id when
// doc has none.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (any, error) {
	doc = doc.Clone()
	if doc == nil {
		doc = docstore.Document{}
	}
	if doc.ID() == nil {
		doc[docstore.IDField] = uuid.NewString()
	}

	docID, err := encodeID(doc.ID())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "encode document")
	}

	row := &documentRow{Collection: c.name, DocID: docID, Body: string(body)}
	if _, err := c.store.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s in %s", docstore.ErrDuplicateID, docID, c.name)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "insert document")
	}
	return doc.ID(), nil
}

// UpdateMany applies update to every matching document inside one
// transaction. Documents the update leaves unchanged count as matched only.
func (c *Collection) UpdateMany(ctx context.Context, filter docstore.Filter, update docstore.Update) (docstore.UpdateResult, error) {
	var result docstore.UpdateResult

	err := c.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows, err := c.rows(ctx, tx)
		if err != nil {
			return err
		}

		for _, row := range rows {
			doc, err := decodeBody(row.Body)
			if err != nil {
				return err
			}
			ok, err := docstore.Match(doc, filter)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			result.Matched++

			updated, changed, err := docstore.Apply(doc, update)
			if err != nil {
				return err
			}
			if !changed {
				continue
			}

			body, err := json.Marshal(updated)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryBadInput, "encode document")
			}
			row.Body = string(body)
			if _, err := tx.NewUpdate().Model(&row).Column("body").WherePK().Exec(ctx); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryExternal, "update document")
			}
			result.Modified++
		}
		return nil
	})
	if err != nil {
		return docstore.UpdateResult{}, err
	}

	c.store.logger.Debug("documents updated",
		"collection", c.name,
		"matched", result.Matched,
		"modified", result.Modified,
	)
	return result, nil
}

func (c *Collection) rows(ctx context.Context, db bun.IDB) ([]documentRow, error) {
	var rows []documentRow
	err := db.NewSelect().
		Model(&rows).
		Where("collection = ?", c.name).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "load documents")
	}
	return rows, nil
}

// encodeID renders an _id as JSON so "1" and 1 stay distinct keys.
func encodeID(id any) (string, error) {
	raw, err := json.Marshal(id)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "encode _id")
	}
	return string(raw), nil
}

func decodeBody(body string) (docstore.Document, error) {
	doc, err := docstore.ParseDocument([]byte(body))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "decode stored document")
	}
	return doc, nil
}
