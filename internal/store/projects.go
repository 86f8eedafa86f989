package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"ai-app-builder/internal/workflow"
)

// ProjectRecord is the persisted form of a project. Snapshot holds the
// full project as JSON; the other columns exist for listing and counting.
type ProjectRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Name        string    `gorm:"size:255"`
	Description string    `gorm:"type:text"`
	Prompt      string    `gorm:"type:text"`
	Status      string    `gorm:"size:32;index"`
	Error       string    `gorm:"type:text"`
	Snapshot    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName pins the table name.
func (ProjectRecord) TableName() string { return "projects" }

// ProjectSummary is a listing row.
type ProjectSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SaveProject inserts or replaces the snapshot of p. prompt is kept only
// when non-empty so later snapshots do not erase it.
func (d *Database) SaveProject(ctx context.Context, p workflow.Project, prompt string) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project %s: %w", p.ID, err)
	}
	rec := ProjectRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Prompt:      prompt,
		Status:      string(p.Status),
		Error:       p.Error,
		Snapshot:    string(snapshot),
		CreatedAt:   p.CreatedAt,
	}

	columns := []string{"name", "description", "status", "error", "snapshot", "updated_at"}
	if prompt != "" {
		columns = append(columns, "prompt")
	}
	err = d.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.ID, err)
	}
	return nil
}

// GetProject loads the latest snapshot.
func (d *Database) GetProject(ctx context.Context, id string) (*workflow.Project, error) {
	var rec ProjectRecord
	if err := d.DB.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	var p workflow.Project
	if err := json.Unmarshal([]byte(rec.Snapshot), &p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	return &p, nil
}

// GetProjectPrompt returns the prompt a project was started from.
func (d *Database) GetProjectPrompt(ctx context.Context, id string) (string, error) {
	var rec ProjectRecord
	err := d.DB.WithContext(ctx).Select("prompt").First(&rec, "id = ?", id).Error
	if err != nil {
		return "", notFound(err)
	}
	return rec.Prompt, nil
}

// ListProjects returns up to limit projects, newest first. limit <= 0
// means 100.
func (d *Database) ListProjects(ctx context.Context, limit int) ([]ProjectSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []ProjectRecord
	err := d.DB.WithContext(ctx).
		Select("id", "name", "description", "status", "error", "created_at", "updated_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]ProjectSummary, len(recs))
	for i, r := range recs {
		out[i] = ProjectSummary{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Status:      r.Status,
			Error:       r.Error,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return out, nil
}

// DeleteProject removes a project.
func (d *Database) DeleteProject(ctx context.Context, id string) error {
	res := d.DB.WithContext(ctx).Delete(&ProjectRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProjectsByStatus feeds the projects-by-status gauge.
func (d *Database) CountProjectsByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := d.DB.WithContext(ctx).
		Model(&ProjectRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// FailInterruptedProjects marks projects left generating by a previous
// process as failed. It returns how many were updated.
func (d *Database) FailInterruptedProjects(ctx context.Context, message string) (int64, error) {
	var recs []ProjectRecord
	err := d.DB.WithContext(ctx).Where("status = ?", string(workflow.ProjectGenerating)).Find(&recs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find interrupted projects: %w", err)
	}

	var n int64
	for _, rec := range recs {
		var p workflow.Project
		if err := json.Unmarshal([]byte(rec.Snapshot), &p); err != nil {
			continue
		}
		if err := p.SetStatus(workflow.ProjectError); err != nil {
			continue
		}
		p.Error = message
		for i := range p.Agents {
			if p.Agents[i].Status == workflow.AgentWorking {
				_ = p.Agents[i].SetStatus(workflow.AgentError)
				p.Agents[i].Error = message
			}
		}
		if err := d.SaveProject(ctx, p, ""); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
