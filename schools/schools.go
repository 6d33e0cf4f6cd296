// Package schools holds small helpers over a school collection: list,
// insert, retopic and query by topic.
package schools

import (
	"context"

	"github.com/goliatone/go-call-history/docstore"
)

// Field names used by the helpers.
const (
	FieldName   = "name"
	FieldTopics = "topics"
)

// ListAll returns every document of coll. An empty collection yields an
// empty slice.
func ListAll(ctx context.Context, coll docstore.Collection) ([]docstore.Document, error) {
	docs, err := coll.Find(ctx, docstore.Filter{})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs, nil
}

// InsertSchool inserts a document built from fields and returns its _id.
func InsertSchool(ctx context.Context, coll docstore.Collection, fields docstore.Document) (any, error) {
	return coll.InsertOne(ctx, fields)
}

// UpdateTopics replaces the topics of every school named name.
func UpdateTopics(ctx context.Context, coll docstore.Collection, name string, topics []string) (docstore.UpdateResult, error) {
	return coll.UpdateMany(ctx,
		docstore.Filter{FieldName: name},
		docstore.Update{"$set": map[string]any{FieldTopics: topics}},
	)
}

// SchoolsByTopic returns the schools whose topics contain topic.
func SchoolsByTopic(ctx context.Context, coll docstore.Collection, topic string) ([]docstore.Document, error) {
	docs, err := coll.Find(ctx, TopicFilter(topic))
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	return docs, nil
}

// TopicFilter matches documents with at least one topic equal to topic.
func TopicFilter(topic string) docstore.Filter {
	return docstore.Filter{
		FieldTopics: map[string]any{
			"$elemMatch": map[string]any{"$eq": topic},
		},
	}
}
