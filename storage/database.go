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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/agentlens/agentlens/metrics"
)

// bundleJSON stores a metrics bundle as a JSON text column.
type bundleJSON json.RawMessage

// Value implements driver.Valuer.
func (b bundleJSON) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (b *bundleJSON) Scan(value any) error {
	if value == nil {
		*b = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*b = bundleJSON(append([]byte(nil), v...))
	case string:
		*b = bundleJSON(v)
	default:
		return fmt.Errorf("failed to scan JSON column: unexpected type %T", value)
	}
	return nil
}

// GormDataType returns the common data type.
func (bundleJSON) GormDataType() string {
	return "text"
}

// reportRecord is the database row for one report.
type reportRecord struct {
	ID        string `gorm:"primaryKey"`
	Label     string
	CreatedAt time.Time `gorm:"index"`
	Domains   string
	Runs      int
	Bundle    bundleJSON
}

func (reportRecord) TableName() string { return "reports" }

func toRecord(report *Report) (*reportRecord, error) {
	data, err := json.Marshal(report.Bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return &reportRecord{
		ID:        report.ID,
		Label:     report.Label,
		CreatedAt: report.CreatedAt,
		Domains:   strings.Join(report.Domains, ","),
		Runs:      report.Runs,
		Bundle:    bundleJSON(data),
	}, nil
}

func (r *reportRecord) toReport() (*Report, error) {
	report := &Report{
		ID:        r.ID,
		Label:     r.Label,
		CreatedAt: r.CreatedAt,
		Runs:      r.Runs,
	}
	if r.Domains != "" {
		report.Domains = strings.Split(r.Domains, ",")
	}
	if len(r.Bundle) > 0 {
		var bundle metrics.Bundle
		if err := json.Unmarshal(r.Bundle, &bundle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bundle: %w", err)
		}
		report.Bundle = &bundle
	}
	return report, nil
}

// DatabaseStorage provides SQLite-backed report storage.
type DatabaseStorage struct {
	db *gorm.DB
}

// NewDatabaseStorage opens (and if necessary creates) a SQLite database at
// the given path and migrates the report table. Use ":memory:" for an
// in-memory database.
func NewDatabaseStorage(path string) (*DatabaseStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&reportRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate report table: %w", err)
	}
	return &DatabaseStorage{db: db}, nil
}

// SaveReport stores a report.
func (d *DatabaseStorage) SaveReport(ctx context.Context, report *Report) error {
	if report == nil || report.ID == "" {
		return ErrInvalidInput
	}
	record, err := toRecord(report)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Save(record).Error
}

// GetReport retrieves a report by ID.
func (d *DatabaseStorage) GetReport(ctx context.Context, id string) (*Report, error) {
	var record reportRecord
	err := d.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	return record.toReport()
}

// ListReports returns all stored reports, newest first.
func (d *DatabaseStorage) ListReports(ctx context.Context) ([]Report, error) {
	var records []reportRecord
	err := d.db.WithContext(ctx).Order("created_at DESC, id ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]Report, 0, len(records))
	for i := range records {
		report, err := records[i].toReport()
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// DeleteReport removes a report.
func (d *DatabaseStorage) DeleteReport(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Delete(&reportRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Storage = (*DatabaseStorage)(nil)
