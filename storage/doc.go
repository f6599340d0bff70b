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


// Package storage provides the vector index abstraction for ragchat.
//
// The index itself lives in an external service; this package only defines
// the operations the pipelines need from it. Ingestion upserts embedding
// records and the chat endpoint queries for nearest neighbours.
//
// # Constructor Return Type Pattern
//
// Public constructors return the VectorIndex interface:
//
//	index, err := pinecone.NewIndex(ctx, cfg)  // returns storage.VectorIndex
//
// Test doubles in storage/mock return concrete types so tests can inspect
// recorded upserts and queries.
//
// # Implementations
//
//   - storage/pinecone: Pinecone data plane over REST
//   - storage/mock: In-memory double for unit tests
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All index methods accept context.Context for cancellation. Calls carry no
// deadline unless the caller's context has one.
package storage
