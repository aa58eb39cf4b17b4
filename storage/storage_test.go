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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/agentlens/agentlens/metrics"
)

func makeBundle() *metrics.Bundle {
	return &metrics.Bundle{
		PRF: []metrics.PRFRow{
			{Domain: "airline", Tool: "get_user", Precision: 1, Recall: 0.5, F1: 2.0 / 3.0, OmissionRate: 0.5, TP: 1, FN: 1},
		},
		TCI: []metrics.TCIRow{
			{Domain: "airline", Tool: "get_user", TCI: 0.5, Defined: true, NCorrect: 2, NMishandled: 2},
		},
		Sequence: []metrics.SequenceRow{
			{RunID: "run-1", Domain: "airline", TaskID: "task-1", NPED: 0.25},
		},
		Pass1: metrics.Pass1Report{Raw: 0.5, ComplexityWeighted: 0.4, Runs: 2},
		Pass1ByDomain: map[string]metrics.Pass1Report{
			"airline": {Raw: 0.5, ComplexityWeighted: 0.4, Runs: 2},
		},
	}
}

func makeReport(label string, createdAt time.Time) *Report {
	report := NewReport(label, makeBundle())
	report.CreatedAt = createdAt
	return report
}

// backends returns every Storage implementation under test.
func backends(t *testing.T) map[string]Storage {
	t.Helper()

	file, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	db, err := NewDatabaseStorage(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("NewDatabaseStorage() error = %v", err)
	}

	return map[string]Storage{
		"memory":   NewMemoryStorage(),
		"file":     file,
		"database": db,
	}
}

func TestStorageRoundTrip(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			report := makeReport("baseline", base)

			if err := s.SaveReport(ctx, report); err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}

			got, err := s.GetReport(ctx, report.ID)
			if err != nil {
				t.Fatalf("GetReport() error = %v", err)
			}
			if diff := cmp.Diff(report, got); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStorageNotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetReport(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetReport() error = %v, want ErrNotFound", err)
			}
			if err := s.DeleteReport(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
				t.Errorf("DeleteReport() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStorageInvalidInput(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.SaveReport(ctx, nil); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("SaveReport(nil) error = %v, want ErrInvalidInput", err)
			}
			if err := s.SaveReport(ctx, &Report{}); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("SaveReport(no ID) error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestStorageListNewestFirst(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			older := makeReport("older", base)
			newer := makeReport("newer", base.Add(time.Hour))
			for _, report := range []*Report{older, newer} {
				if err := s.SaveReport(ctx, report); err != nil {
					t.Fatalf("SaveReport() error = %v", err)
				}
			}

			reports, err := s.ListReports(ctx)
			if err != nil {
				t.Fatalf("ListReports() error = %v", err)
			}
			if len(reports) != 2 {
				t.Fatalf("got %d reports, want 2", len(reports))
			}
			if reports[0].Label != "newer" || reports[1].Label != "older" {
				t.Errorf("order = [%s, %s], want [newer, older]", reports[0].Label, reports[1].Label)
			}
		})
	}
}

func TestStorageDelete(t *testing.T) {
	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			report := makeReport("to-delete", base)

			if err := s.SaveReport(ctx, report); err != nil {
				t.Fatalf("SaveReport() error = %v", err)
			}
			if err := s.DeleteReport(ctx, report.ID); err != nil {
				t.Fatalf("DeleteReport() error = %v", err)
			}
			if _, err := s.GetReport(ctx, report.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetReport() after delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestNewReportMetadata(t *testing.T) {
	report := NewReport("label", makeBundle())
	if report.ID == "" {
		t.Error("NewReport() assigned no ID")
	}
	if diff := cmp.Diff([]string{"airline"}, report.Domains); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}
	if report.Runs != 2 {
		t.Errorf("Runs = %d, want 2", report.Runs)
	}
}
