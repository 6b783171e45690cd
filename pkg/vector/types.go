// Package vector implements the VECTOR.* RPC namespace over a ChromaDB
// collection store, grounded on original_source/test_chroma_connection.py
// and its ChromaVectorService counterpart (get_collection_info,
// add_documents, query_documents, analyze_collection).
package vector

// CollectionInfo is VECTOR.get_collection_info's response shape.
type CollectionInfo struct {
	Name       string `json:"name"`
	Exists     bool   `json:"exists"`
	DocumentCount int `json:"document_count"`
}

// AddDocumentsParams is the input to Store.AddDocuments.
type AddDocumentsParams struct {
	CollectionName string           `json:"collection_name"`
	Documents      []string         `json:"documents"`
	Metadatas      []map[string]any `json:"metadatas,omitempty"`
	IDs            []string         `json:"ids,omitempty"`
}

// AddDocumentsResult reports how many documents were written.
type AddDocumentsResult struct {
	Success bool `json:"success"`
	Added   int  `json:"added"`
}

// QueryDocumentsParams is the input to Store.QueryDocuments.
type QueryDocumentsParams struct {
	CollectionName string   `json:"collection_name"`
	QueryTexts     []string `json:"query_texts"`
	NResults       int      `json:"n_results"`
}

// QueryMatch is one result row within one query's result set.
type QueryMatch struct {
	ID        string         `json:"id"`
	Document  string         `json:"document"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Distance  float64        `json:"distance"`
}

// QueryDocumentsResult groups matches per input query text, mirroring
// ChromaDB's parallel-array response shape (documents[i] pairs with
// query_texts[i]).
type QueryDocumentsResult struct {
	Success bool         `json:"success"`
	Matches [][]QueryMatch `json:"matches"`
}

// CollectionAnalysis is VECTOR.analyze_collection's response shape: a
// lightweight health/shape summary, not a statistical analysis.
type CollectionAnalysis struct {
	Success       bool   `json:"success"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	SampleIDs     []string `json:"sample_ids,omitempty"`
}
