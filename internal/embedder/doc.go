// Package embedder turns text into vectors for semantic ranking.
//
// Three providers implement the Embedder interface: OpenAI and Jina call a
// remote embeddings endpoint, and Local computes a deterministic hashed
// bag-of-words vector with no network access. Remote providers retry
// transient failures (429 and 5xx) with exponential backoff and give up
// immediately on other client errors.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider: embedder.ProviderOpenAI,
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "How do I fix a leaky faucet?",
//	})
//
// # Batching
//
// GenerateBatch sends up to MaxBatchSize texts in one call and returns the
// vectors in input order:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{first, second},
//	})
//
// # Circuit Breaking
//
// When Config.Breaker is set, the provider is wrapped in a circuit breaker.
// Once the provider keeps failing, calls fail fast with ErrCircuitOpen
// instead of spending a retry budget per item.
//
// # Caching
//
// This package does not cache. The persistent similarity cache lives in
// package simcache and is consulted by the semantic scoring strategy before
// any provider call.
package embedder
