package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Field names of the gap answer collection.
const (
	fieldUnitID   = "unit_id"
	fieldTenantID = "tenant_id"
	fieldGapID    = "gap_id"
	fieldQuestion = "question_index"
	fieldText     = "text"
	fieldAuthor   = "author_user_id"
	fieldSource   = "source"
	fieldVector   = "embedding"
)

const sourceGapAnswer = "gap_answer"

// MilvusIndex implements Index on a Milvus collection keyed by unit_id.
type MilvusIndex struct {
	client     client.Client
	collection string
	dimension  int
}

// NewMilvusIndex connects to Milvus and ensures the collection exists.
func NewMilvusIndex(ctx context.Context, addr, collection string, dimension int) (*MilvusIndex, error) {
	c, err := client.NewClient(ctx, client.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("milvus connect: %w", err)
	}
	idx := &MilvusIndex{client: c, collection: collection, dimension: dimension}
	if err := idx.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return idx, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("milvus has collection: %w", err)
	}
	if exists {
		return nil
	}
	schema := entity.NewSchema().
		WithName(m.collection).
		WithField(entity.NewField().WithName(fieldUnitID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(fieldTenantID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName(fieldGapID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName(fieldQuestion).WithDataType(entity.FieldTypeVarChar).WithMaxLength(16)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192)).
		WithField(entity.NewField().WithName(fieldAuthor).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName(fieldSource).WithDataType(entity.FieldTypeVarChar).WithMaxLength(32)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dimension)))
	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("milvus create collection: %w", err)
	}
	return nil
}

// Upsert deletes any previous entry with the same unit_id and inserts
// the new one, so revised answers replace their predecessors.
func (m *MilvusIndex) Upsert(ctx context.Context, e Entry) error {
	if len(e.Vector) != m.dimension {
		return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(e.Vector), m.dimension)
	}
	expr := fmt.Sprintf("%s == %q", fieldUnitID, e.UnitID)
	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return fmt.Errorf("milvus delete stale entry: %w", err)
	}
	_, err := m.client.Insert(ctx, m.collection, "",
		entity.NewColumnVarChar(fieldUnitID, []string{e.UnitID}),
		entity.NewColumnVarChar(fieldTenantID, []string{e.TenantID}),
		entity.NewColumnVarChar(fieldGapID, []string{e.GapID}),
		entity.NewColumnVarChar(fieldQuestion, []string{strconv.Itoa(e.QuestionIndex)}),
		entity.NewColumnVarChar(fieldText, []string{e.Text}),
		entity.NewColumnVarChar(fieldAuthor, []string{e.AuthorUserID}),
		entity.NewColumnVarChar(fieldSource, []string{sourceGapAnswer}),
		entity.NewColumnFloatVector(fieldVector, m.dimension, [][]float32{e.Vector}),
	)
	if err != nil {
		return fmt.Errorf("milvus insert: %w", err)
	}
	return nil
}

// Close releases the Milvus connection.
func (m *MilvusIndex) Close() error {
	return m.client.Close()
}
