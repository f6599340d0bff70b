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


package storage

import "errors"

var (
	// ErrIndexClosed indicates that the vector index has been closed.
	ErrIndexClosed = errors.New("vector index is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrInvalidRecord indicates a record that cannot be written.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrIndexNotFound indicates the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrRequestFailed indicates the index service rejected a request.
	ErrRequestFailed = errors.New("index request failed")
)
