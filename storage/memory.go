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

package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage provides in-memory report storage. This implementation is
// suitable for testing and development.
type MemoryStorage struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStorage creates a new in-memory storage instance.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{reports: make(map[string]*Report)}
}

// SaveReport stores a report.
func (m *MemoryStorage) SaveReport(ctx context.Context, report *Report) error {
	if report == nil || report.ID == "" {
		return ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to prevent external modifications.
	copied := *report
	m.reports[report.ID] = &copied
	return nil
}

// GetReport retrieves a report by ID.
func (m *MemoryStorage) GetReport(ctx context.Context, id string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report, exists := m.reports[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *report
	return &copied, nil
}

// ListReports returns all stored reports, newest first.
func (m *MemoryStorage) ListReports(ctx context.Context) ([]Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]Report, 0, len(m.reports))
	for _, report := range m.reports {
		reports = append(reports, *report)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID < reports[j].ID
	})
	return reports, nil
}

// DeleteReport removes a report.
func (m *MemoryStorage) DeleteReport(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reports[id]; !exists {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

var _ Storage = (*MemoryStorage)(nil)
