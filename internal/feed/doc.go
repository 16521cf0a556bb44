// Package feed implements the shared data feed: a depletable queue of data
// rows consumed at most once per item.
//
// The Redis adapter stores rows as a list of JSON objects under a fixed key
// plus a scalar key holding the original row count. CSV ingestion and an
// in-memory feed for tests live here too.
package feed
