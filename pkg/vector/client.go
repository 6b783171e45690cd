package vector

import (
	"context"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go"
	"github.com/amikos-tech/chroma-go/types"
)

// Store is what Handler needs from a ChromaDB-backed collection store.
// Client satisfies it; tests substitute a fake.
type Store interface {
	CollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	AddDocuments(ctx context.Context, p AddDocumentsParams) (AddDocumentsResult, error)
	QueryDocuments(ctx context.Context, p QueryDocumentsParams) (QueryDocumentsResult, error)
	AnalyzeCollection(ctx context.Context, name string) (CollectionAnalysis, error)
}

// Client wraps a ChromaDB HttpClient connection, grounded on
// test_chroma_basic/test_chroma_with_embeddings in
// original_source/test_chroma_connection.py.
type Client struct {
	chroma *chroma.Client
	ef     types.EmbeddingFunction
}

// Config is the ChromaDB connection configuration (host/port/ssl), the
// same three fields the original reads from the environment.
type Config struct {
	Host string
	Port string
	SSL  bool
}

// NewClient connects to ChromaDB and confirms liveness with a heartbeat,
// matching the original's "client.heartbeat()" smoke check.
func NewClient(ctx context.Context, cfg Config, ef types.EmbeddingFunction) (*Client, error) {
	scheme := "http"
	if cfg.SSL {
		scheme = "https"
	}
	basePath := fmt.Sprintf("%s://%s:%s", scheme, cfg.Host, cfg.Port)

	cc, err := chroma.NewClient(chroma.WithBasePath(basePath))
	if err != nil {
		return nil, fmt.Errorf("building chroma client: %w", err)
	}
	if _, err := cc.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("chroma heartbeat: %w", err)
	}

	return &Client{chroma: cc, ef: ef}, nil
}

// Close satisfies internal/connpool.Client for parity with the other
// connector kinds, though ChromaDB's HTTP client holds no connection to
// release.
func (c *Client) Close() error { return nil }

func (c *Client) getOrCreateCollection(ctx context.Context, name string) (*chroma.Collection, error) {
	return c.chroma.CreateCollection(ctx, name, map[string]any{}, true, c.ef, types.L2)
}

// CollectionInfo reports whether a collection exists and its current
// document count, mirroring ChromaVectorService.get_collection_info.
func (c *Client) CollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	collections, err := c.chroma.ListCollections(ctx)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("listing chroma collections: %w", err)
	}
	for _, col := range collections {
		if col.Name == name {
			count, err := col.Count(ctx)
			if err != nil {
				return CollectionInfo{}, fmt.Errorf("counting collection %q: %w", name, err)
			}
			return CollectionInfo{Name: name, Exists: true, DocumentCount: int(count)}, nil
		}
	}
	return CollectionInfo{Name: name, Exists: false}, nil
}

// AddDocuments writes documents (with optional metadata/ids) into a
// collection, creating it if absent, mirroring
// ChromaVectorService.add_documents.
func (c *Client) AddDocuments(ctx context.Context, p AddDocumentsParams) (AddDocumentsResult, error) {
	collection, err := c.getOrCreateCollection(ctx, p.CollectionName)
	if err != nil {
		return AddDocumentsResult{}, fmt.Errorf("getting or creating collection %q: %w", p.CollectionName, err)
	}

	ids := p.IDs
	if len(ids) == 0 {
		ids = generateIDs(p.CollectionName, len(p.Documents))
	}

	if _, err := collection.Add(ctx, nil, metadatasToChroma(p.Metadatas, len(p.Documents)), p.Documents, ids); err != nil {
		return AddDocumentsResult{}, fmt.Errorf("adding documents to %q: %w", p.CollectionName, err)
	}

	return AddDocumentsResult{Success: true, Added: len(p.Documents)}, nil
}

// QueryDocuments runs a similarity search and assembles the parallel
// result arrays ChromaDB returns into per-query match lists, mirroring
// ChromaVectorService.query_documents.
func (c *Client) QueryDocuments(ctx context.Context, p QueryDocumentsParams) (QueryDocumentsResult, error) {
	collection, err := c.getOrCreateCollection(ctx, p.CollectionName)
	if err != nil {
		return QueryDocumentsResult{}, fmt.Errorf("getting or creating collection %q: %w", p.CollectionName, err)
	}

	nResults := p.NResults
	if nResults <= 0 {
		nResults = 10
	}

	results, err := collection.Query(ctx, p.QueryTexts, int32(nResults), nil, nil, []types.QueryEnum{types.IDocuments, types.IMetadatas, types.IDistances})
	if err != nil {
		return QueryDocumentsResult{}, fmt.Errorf("querying %q: %w", p.CollectionName, err)
	}

	matches := make([][]QueryMatch, len(results.Documents))
	for i := range results.Documents {
		row := make([]QueryMatch, len(results.Documents[i]))
		for j := range results.Documents[i] {
			m := QueryMatch{Document: results.Documents[i][j]}
			if i < len(results.Ids) && j < len(results.Ids[i]) {
				m.ID = results.Ids[i][j]
			}
			if i < len(results.Distances) && j < len(results.Distances[i]) {
				m.Distance = float64(results.Distances[i][j])
			}
			if i < len(results.Metadatas) && j < len(results.Metadatas[i]) {
				m.Metadata = results.Metadatas[i][j]
			}
			row[j] = m
		}
		matches[i] = row
	}

	return QueryDocumentsResult{Success: true, Matches: matches}, nil
}

// AnalyzeCollection reports a lightweight shape summary: document count
// plus a small sample of ids, mirroring
// ChromaVectorService.analyze_collection's health-check intent without
// reproducing its Python-side statistics.
func (c *Client) AnalyzeCollection(ctx context.Context, name string) (CollectionAnalysis, error) {
	info, err := c.CollectionInfo(ctx, name)
	if err != nil {
		return CollectionAnalysis{}, err
	}
	if !info.Exists {
		return CollectionAnalysis{Success: false, Name: name}, nil
	}

	collection, err := c.getOrCreateCollection(ctx, name)
	if err != nil {
		return CollectionAnalysis{}, err
	}

	const sampleSize = 5
	sample, err := collection.Get(ctx, nil, nil, nil, int32(sampleSize), 0, []types.QueryEnum{types.IDocuments})
	if err != nil {
		return CollectionAnalysis{Success: true, Name: name, DocumentCount: info.DocumentCount}, nil
	}

	return CollectionAnalysis{
		Success:       true,
		Name:          name,
		DocumentCount: info.DocumentCount,
		SampleIDs:     sample.Ids,
	}, nil
}

// generateIDs mints positional ids when the caller doesn't supply any,
// matching ChromaDB's requirement that every added document carry one.
func generateIDs(collectionName string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", collectionName, i)
	}
	return ids
}

func metadatasToChroma(metadatas []map[string]any, n int) []map[string]any {
	if len(metadatas) == n {
		return metadatas
	}
	out := make([]map[string]any, n)
	for i := range out {
		if i < len(metadatas) {
			out[i] = metadatas[i]
		} else {
			out[i] = map[string]any{}
		}
	}
	return out
}
