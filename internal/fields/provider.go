// Package fields fetches and caches per-document-type field metadata from
// the extraction service.
package fields

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
)

// Provider fetches field metadata, caching each document type's field list.
// Metadata is static per document type, so the cache is the common path.
type Provider struct {
	client docai.Client
	cache  *gocache.Cache
}

// NewProvider creates a Provider with the given cache TTL.
func NewProvider(client docai.Client, ttl time.Duration) *Provider {
	return &Provider{
		client: client,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// Get returns the ordered field list for a document type, from cache when
// possible.
func (p *Provider) Get(ctx context.Context, documentType string) ([]model.FieldMetadata, error) {
	if cached, ok := p.cache.Get(documentType); ok {
		return cached.([]model.FieldMetadata), nil
	}

	resp, err := p.client.Fields(ctx, documentType)
	if err != nil {
		return nil, eris.Wrapf(err, "fields: fetch %s", documentType)
	}

	fields := make([]model.FieldMetadata, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, model.FieldMetadata{
			Name:     f.Name,
			Label:    f.Label,
			Category: f.Category,
			Required: f.Required,
			Optional: f.Optional,
			Type:     f.Type,
			HelpText: f.HelpText,
		})
	}

	p.cache.SetDefault(documentType, fields)
	zap.L().Debug("fields: fetched metadata",
		zap.String("document_type", documentType),
		zap.Int("fields", len(fields)),
	)
	return fields, nil
}

// Prefetch warms the cache for several document types concurrently.
func (p *Provider) Prefetch(ctx context.Context, documentTypes []string) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, dt := range documentTypes {
		dt := dt
		g.Go(func() error {
			if _, err := p.Get(gCtx, dt); err != nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Invalidate drops the cached field list for a document type.
func (p *Provider) Invalidate(documentType string) {
	p.cache.Delete(documentType)
}
