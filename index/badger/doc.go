// Package badger provides an embedded vector index backed by BadgerDB.
// Papers and their embedding vectors are stored together as JSON values
// and searched with a brute-force cosine scan, which is adequate for
// local development and test fixtures without a running Qdrant instance.
package badger
