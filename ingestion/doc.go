// Package ingestion keeps the vector store, the full-text index and the
// document catalog in step as meetings are indexed and removed.
//
// The Indexer writes both index halves for a document as one logical unit.
// A failed half is retried with exponential backoff; if it still fails the
// caller receives a *core.PartialIndexFailureError naming it, and Reconcile
// sweeps whatever was left behind.
//
// The Pipeline embeds document text through an ai.Embedder on an ants
// worker pool and hands the results to the Indexer. Ingest waits for every
// request and reports all failures together.
package ingestion
