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


package core

import "errors"

// Domain validation errors
var (
	// ErrEmptyQuery indicates the request query text is empty or whitespace.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidTopK indicates a negative top-k value.
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrInvalidYearRange indicates min_year exceeds max_year.
	ErrInvalidYearRange = errors.New("min_year cannot exceed max_year")

	// ErrEmptyPaperID indicates a paper without an identity key.
	ErrEmptyPaperID = errors.New("paper_id cannot be empty")
)
