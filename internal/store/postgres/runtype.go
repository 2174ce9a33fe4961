package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

// CreateRunType inserts a new run type. Required tags are stored as a
// JSON array.
func (s *Store) CreateRunType(ctx context.Context, rt *store.RunType) error {
	tags, err := json.Marshal(tagsOrEmpty(rt.RequiredTags))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO run_types (id, name, description, required_tags, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query, rt.ID, rt.Name, rt.Description, tags, rt.CreatedAt)
	return err
}

// GetRunTypeByID returns a run type by its ID.
func (s *Store) GetRunTypeByID(ctx context.Context, id uuid.UUID) (*store.RunType, error) {
	query := `SELECT id, name, description, required_tags, created_at FROM run_types WHERE id = $1`
	return scanRunType(s.db.QueryRowContext(ctx, query, id))
}

// ListRunTypes returns all run types ordered by name.
func (s *Store) ListRunTypes(ctx context.Context) ([]store.RunType, error) {
	query := `SELECT id, name, description, required_tags, created_at FROM run_types ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runTypes []store.RunType
	for rows.Next() {
		rt, err := scanRunType(rows)
		if err != nil {
			return nil, err
		}
		runTypes = append(runTypes, *rt)
	}
	return runTypes, rows.Err()
}

// UpdateRunType mutates a run type's name, description, and tags.
func (s *Store) UpdateRunType(ctx context.Context, rt *store.RunType) error {
	tags, err := json.Marshal(tagsOrEmpty(rt.RequiredTags))
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE run_types SET name = $2, description = $3, required_tags = $4 WHERE id = $1`,
		rt.ID, rt.Name, rt.Description, tags)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteRunType removes a run type. Runs referencing it keep their rows
// with the reference nulled out.
func (s *Store) DeleteRunType(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM run_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// LinkTemplate associates a template with a run type.
func (s *Store) LinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error {
	query := `
		INSERT INTO run_type_templates (run_type_id, template_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, runTypeID, templateID)
	return err
}

// UnlinkTemplate removes a template association.
func (s *Store) UnlinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM run_type_templates WHERE run_type_id = $1 AND template_id = $2`,
		runTypeID, templateID)
	return err
}

// ListTemplatesForRunType returns the templates associated with a run type.
func (s *Store) ListTemplatesForRunType(ctx context.Context, runTypeID uuid.UUID) ([]store.Template, error) {
	query := `
		SELECT t.id, t.name, t.kind, t.body, t.message_type, t.target_job_type, t.editable, t.created_at
		FROM templates t
		JOIN run_type_templates rtt ON rtt.template_id = t.id
		WHERE rtt.run_type_id = $1
		ORDER BY t.name
	`

	rows, err := s.db.QueryContext(ctx, query, runTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []store.Template
	for rows.Next() {
		var t store.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Kind, &t.Body, &t.MessageType, &t.TargetJobType, &t.Editable, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SetParameterDefault overrides a template parameter's default for runs
// of this type.
func (s *Store) SetParameterDefault(ctx context.Context, runTypeID uuid.UUID, paramName, value string) error {
	query := `
		INSERT INTO run_type_parameter_defaults (run_type_id, parameter_name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_type_id, parameter_name) DO UPDATE SET value = $3
	`
	_, err := s.db.ExecContext(ctx, query, runTypeID, paramName, value)
	return err
}

// ListParameterDefaults returns the per-parameter overrides keyed by name.
func (s *Store) ListParameterDefaults(ctx context.Context, runTypeID uuid.UUID) (map[string]string, error) {
	query := `SELECT parameter_name, value FROM run_type_parameter_defaults WHERE run_type_id = $1`

	rows, err := s.db.QueryContext(ctx, query, runTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defaults := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		defaults[name] = value
	}
	return defaults, rows.Err()
}

func scanRunType(row rowScanner) (*store.RunType, error) {
	var rt store.RunType
	var tags []byte

	err := row.Scan(&rt.ID, &rt.Name, &rt.Description, &tags, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rt.RequiredTags); err != nil {
			return nil, fmt.Errorf("corrupt required_tags for run type %s: %w", rt.ID, err)
		}
	}
	return &rt, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
