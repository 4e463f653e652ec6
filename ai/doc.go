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


// Package ai provides abstractions for the AI services the retrieval
// pipeline consumes: text embeddings and language-model completions.
//
// The pipeline depends on two interfaces:
//
//   - Embedder: maps text to a fixed-length dense vector
//   - Completer: structured-output and token-streamed completions
//
// and a Provider that aggregates them for initialization and lifecycle
// management.
//
// # Implementation Packages
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles without external dependencies
//
// Production constructors (openai.NewProvider and friends) return interface
// types to enforce abstraction. Mock constructors return concrete types so
// tests can inject behavior and assert call counts.
package ai
