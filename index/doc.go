// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package index defines the vector index contract consumed by the
// retrieval pipeline: nearest-neighbor search, point lookup by paper
// identifier, filter-only scrolling, and upsert for the offline seeder.
//
// Two backends implement the contract:
//
//   - index/qdrant: REST client for a Qdrant collection, translating
//     search filters into Qdrant's native filter model
//   - index/badger: embedded BadgerDB store with a brute-force cosine
//     scan, for local development and tests
package index
