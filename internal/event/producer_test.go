package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/importer"
	pkgkafka "github.com/utafrali/catalogimporter/pkg/kafka"
	"github.com/utafrali/catalogimporter/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, evt *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: evt})
	return nil
}

func TestEntityTopic(t *testing.T) {
	tests := []struct {
		entity string
		action string
		want   string
	}{
		{"Product", ActionCreated, "catalog.product.created"},
		{"ProductCategory", ActionCreated, "catalog.product_category.created"},
		{"ProductManufacturer", ActionUpdated, "catalog.product_manufacturer.updated"},
		{"ProductPicture", ActionCreated, "catalog.product_picture.created"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, EntityTopic(tc.entity, tc.action))
		})
	}
}

func TestProducer_EntityInserted_Product(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, slog.Default())

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	ctx = logger.WithImportID(ctx, "imp-1")

	product := &domain.Product{ID: 12, Sku: "LAMP-1", Name: "Desk lamp", Published: true}
	require.NoError(t, p.EntityInserted(ctx, product))
	require.Len(t, pub.sent, 1)

	sent := pub.sent[0]
	assert.Equal(t, "catalog.product.created", sent.topic)
	assert.Equal(t, "product.created", sent.event.EventType)
	assert.Equal(t, "12", sent.event.AggregateID)
	assert.Equal(t, "product", sent.event.AggregateType)
	assert.Equal(t, SourceCatalogImporter, sent.event.Source)
	assert.Equal(t, "corr-1", sent.event.CorrelationID)
	assert.Equal(t, "imp-1", sent.event.ImportID)
	assert.Equal(t, ProducerVersion, sent.event.Metadata["producer_version"])

	var data EntityChangedData
	require.NoError(t, json.Unmarshal(sent.event.Data, &data))
	assert.Equal(t, int64(12), data.ID)
	assert.Equal(t, "Product", data.Entity)
	assert.Equal(t, "LAMP-1", data.Sku)
	assert.Equal(t, "Desk lamp", data.Name)
	require.NotNil(t, data.Published)
	assert.True(t, *data.Published)
}

func TestProducer_EntityUpdated_Mapping(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, slog.Default())

	mapping := &domain.ProductMapping{ID: 3, Kind: domain.MappingManufacturer, ProductID: 12, TargetID: 5}
	require.NoError(t, p.EntityUpdated(context.Background(), mapping))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "catalog.product_manufacturer.updated", pub.sent[0].topic)
	assert.Empty(t, pub.sent[0].event.CorrelationID)

	var data EntityChangedData
	require.NoError(t, json.Unmarshal(pub.sent[0].event.Data, &data))
	assert.Equal(t, int64(12), data.ProductID)
	assert.Equal(t, int64(5), data.TargetID)
	assert.Nil(t, data.Published)
}

func TestProducer_EntityInserted_ProductPicture(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, slog.Default())

	require.NoError(t, p.EntityInserted(context.Background(), &domain.ProductPicture{ID: 8, ProductID: 12, PictureID: 40}))
	require.Len(t, pub.sent, 1)

	var data EntityChangedData
	require.NoError(t, json.Unmarshal(pub.sent[0].event.Data, &data))
	assert.Equal(t, int64(40), data.PictureID)
	assert.Equal(t, "ProductPicture", data.Entity)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewProducer(pub, slog.Default())

	err := p.EntityInserted(context.Background(), &domain.Product{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish product.created event")
	assert.Contains(t, err.Error(), "broker down")
}

func TestProducer_PublishImportFinished(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, slog.Default())

	summary := importer.Summary{
		TotalRecords: 10,
		NewRecords:   7,
		Messages:     []importer.Message{{Severity: importer.SeverityWarning, Text: "dropped"}},
	}
	require.NoError(t, p.PublishImportFinished(context.Background(), "imp-1", "products.csv", "completed", summary))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "catalog.import.finished", pub.sent[0].topic)
	assert.Equal(t, "imp-1", pub.sent[0].event.AggregateID)

	var data ImportFinishedData
	require.NoError(t, json.Unmarshal(pub.sent[0].event.Data, &data))
	assert.Equal(t, "completed", data.Status)
	assert.Equal(t, "products.csv", data.FileName)
	assert.Equal(t, 7, data.Summary.NewRecords)
	assert.Empty(t, data.Summary.Messages)
}
