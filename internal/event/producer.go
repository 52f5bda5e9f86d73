package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/utafrali/catalogimporter/internal/domain"
	"github.com/utafrali/catalogimporter/internal/importer"
	pkgkafka "github.com/utafrali/catalogimporter/pkg/kafka"
)

// ProducerVersion identifies the payload layout of the data field.
const ProducerVersion = "1"

// Actions appended to the entity topic.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// TopicImportFinished receives one event per finished import run.
var TopicImportFinished = pkgkafka.Topic("import", "finished")

// AggregateTypeImport is the aggregate type of import run events.
const AggregateTypeImport = "import"

// SourceCatalogImporter identifies events originating from this service.
const SourceCatalogImporter = "catalog-importer"

// EntityChangedData is the payload of an entity created or updated event.
type EntityChangedData struct {
	ID        int64  `json:"id"`
	Entity    string `json:"entity"`
	Sku       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	TargetID  int64  `json:"target_id,omitempty"`
	PictureID int64  `json:"picture_id,omitempty"`
	Published *bool  `json:"published,omitempty"`
}

// ImportFinishedData is the payload of an import.finished event.
type ImportFinishedData struct {
	ImportID string           `json:"import_id"`
	FileName string           `json:"file_name"`
	Status   string           `json:"status"`
	Summary  importer.Summary `json:"summary"`
}

// publisher is the subset of *pkgkafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog change events to Kafka. It satisfies
// importer.Notifier.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

var _ importer.Notifier = (*Producer)(nil)

// NewProducer creates a new event producer.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// EntityTopic returns the topic for changes of the named entity, e.g.
// catalog.product_category.created for ProductCategory.
func EntityTopic(entityName, action string) string {
	return pkgkafka.Topic(snakeCase(entityName), action)
}

// EntityInserted publishes a <entity>.created event.
func (p *Producer) EntityInserted(ctx context.Context, entity domain.Entity) error {
	return p.publishEntity(ctx, entity, ActionCreated)
}

// EntityUpdated publishes a <entity>.updated event.
func (p *Producer) EntityUpdated(ctx context.Context, entity domain.Entity) error {
	return p.publishEntity(ctx, entity, ActionUpdated)
}

func (p *Producer) publishEntity(ctx context.Context, entity domain.Entity, action string) error {
	name := entity.EntityName()
	topic := EntityTopic(name, action)
	aggregate := snakeCase(name)
	id := strconv.FormatInt(entity.GetID(), 10)

	evt, err := pkgkafka.NewEvent(aggregate+"."+action, id, aggregate, SourceCatalogImporter, entityData(entity))
	if err != nil {
		return fmt.Errorf("create %s.%s event: %w", aggregate, action, err)
	}
	stamp(ctx, evt)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s.%s event: %w", aggregate, action, err)
	}

	p.logger.DebugContext(ctx, "published entity event",
		slog.String("topic", topic),
		slog.String("entity_id", id),
	)
	return nil
}

// PublishImportFinished publishes an import.finished event.
func (p *Producer) PublishImportFinished(ctx context.Context, importID, fileName, status string, summary importer.Summary) error {
	summary.Messages = nil
	data := ImportFinishedData{
		ImportID: importID,
		FileName: fileName,
		Status:   status,
		Summary:  summary,
	}

	evt, err := pkgkafka.NewEvent("import.finished", importID, AggregateTypeImport, SourceCatalogImporter, data)
	if err != nil {
		return fmt.Errorf("create import.finished event: %w", err)
	}
	stamp(ctx, evt)

	if err := p.kafka.Publish(ctx, TopicImportFinished, evt); err != nil {
		return fmt.Errorf("publish import.finished event: %w", err)
	}

	p.logger.DebugContext(ctx, "published import.finished event",
		slog.String("import_id", importID),
		slog.String("status", status),
	)
	return nil
}

func stamp(ctx context.Context, evt *pkgkafka.Event) {
	evt.WithContext(ctx).WithMetadata("producer_version", ProducerVersion)
}

func entityData(entity domain.Entity) EntityChangedData {
	data := EntityChangedData{ID: entity.GetID(), Entity: entity.EntityName()}
	switch e := entity.(type) {
	case *domain.Product:
		data.Sku = e.Sku
		data.Name = e.Name
		data.Published = &e.Published
	case *domain.ProductMapping:
		data.ProductID = e.ProductID
		data.TargetID = e.TargetID
	case *domain.ProductPicture:
		data.ProductID = e.ProductID
		data.PictureID = e.PictureID
	case *domain.Picture:
		data.Name = e.SeoFilename
	}
	return data
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
