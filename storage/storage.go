// Copyright 2025 The agentlens Authors
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

// Package storage persists computed metric reports. Three backends are
// provided: in-memory for tests, JSON files for local analysis, and a
// SQLite database for accumulating reports across runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/agentlens/agentlens/metrics"
)

var (
	// ErrNotFound indicates the requested report was not found.
	ErrNotFound = errors.New("storage: not found")

	// ErrAlreadyExists indicates the report already exists.
	ErrAlreadyExists = errors.New("storage: already exists")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// Report is one persisted metrics computation with its identity and
// provenance metadata.
type Report struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	CreatedAt time.Time       `json:"created_at"`
	Domains   []string        `json:"domains"`
	Runs      int             `json:"runs"`
	Bundle    *metrics.Bundle `json:"bundle"`
}

// NewReport wraps a bundle into a Report with a fresh ID.
func NewReport(label string, bundle *metrics.Bundle) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Label:     label,
		CreatedAt: time.Now().UTC(),
		Domains:   bundle.Domains(),
		Runs:      bundle.Pass1.Runs,
		Bundle:    bundle,
	}
}

// Storage defines persistence for metric reports.
type Storage interface {
	// SaveReport stores a report.
	SaveReport(ctx context.Context, report *Report) error

	// GetReport retrieves a report by ID.
	GetReport(ctx context.Context, id string) (*Report, error)

	// ListReports returns all stored reports, newest first.
	ListReports(ctx context.Context) ([]Report, error)

	// DeleteReport removes a report.
	DeleteReport(ctx context.Context, id string) error
}
