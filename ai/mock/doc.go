// Package mock provides test doubles for the ai interfaces.
// Default behavior is deterministic so retrieval tests are reproducible;
// function fields allow per-test behavior injection.
package mock
