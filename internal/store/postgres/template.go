package postgres

import (
	"context"
	"database/sql"
	"errors"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

const templateColumns = `id, name, kind, body, message_type, target_job_type, editable, created_at`

// CreateTemplate inserts a new template row.
func (s *Store) CreateTemplate(ctx context.Context, t *store.Template) error {
	query := `
		INSERT INTO templates (id, name, kind, body, message_type, target_job_type, editable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Kind, t.Body, t.MessageType, t.TargetJobType, t.Editable, t.CreatedAt)
	return err
}

// GetTemplateByID returns a template with its parameters populated.
func (s *Store) GetTemplateByID(ctx context.Context, id uuid.UUID) (*store.Template, error) {
	query := "SELECT " + templateColumns + " FROM templates WHERE id = $1"

	var t store.Template
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Kind, &t.Body, &t.MessageType, &t.TargetJobType, &t.Editable, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	params, err := s.listParameters(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Parameters = params

	return &t, nil
}

// ListTemplates returns all templates, optionally filtered by kind.
func (s *Store) ListTemplates(ctx context.Context, kind *store.TemplateKind) ([]store.Template, error) {
	query := "SELECT " + templateColumns + " FROM templates"
	var args []any
	if kind != nil {
		query += " WHERE kind = $1"
		args = append(args, *kind)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// UpdateTemplate mutates an editable template. Built-in templates are
// guarded by the editable flag in the WHERE clause: zero rows affected
// against an existing row means the template is locked.
func (s *Store) UpdateTemplate(ctx context.Context, t *store.Template) error {
	query := `
		UPDATE templates
		SET name = $2, body = $3, message_type = $4, target_job_type = $5
		WHERE id = $1 AND editable = TRUE
	`

	result, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Body, t.MessageType, t.TargetJobType)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return s.templateMissingOrLocked(ctx, t.ID)
	}
	return nil
}

// DeleteTemplate removes an editable template.
func (s *Store) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM templates WHERE id = $1 AND editable = TRUE`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return s.templateMissingOrLocked(ctx, id)
	}
	return nil
}

// AddParameter inserts one template parameter.
func (s *Store) AddParameter(ctx context.Context, p *store.TemplateParameter) error {
	query := `
		INSERT INTO template_parameters (id, template_id, name, type, required, default_value)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.TemplateID, p.Name, p.Type, p.Required, p.DefaultValue)
	return err
}

// DeleteParameter removes one template parameter.
func (s *Store) DeleteParameter(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM template_parameters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) listParameters(ctx context.Context, templateID uuid.UUID) ([]store.TemplateParameter, error) {
	query := `
		SELECT id, template_id, name, type, required, default_value
		FROM template_parameters WHERE template_id = $1 ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var params []store.TemplateParameter
	for rows.Next() {
		var p store.TemplateParameter
		if err := rows.Scan(&p.ID, &p.TemplateID, &p.Name, &p.Type, &p.Required, &p.DefaultValue); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// templateMissingOrLocked disambiguates a zero-row update: the row either
// does not exist or is non-editable.
func (s *Store) templateMissingOrLocked(ctx context.Context, id uuid.UUID) error {
	var editable bool
	err := s.db.QueryRowContext(ctx,
		`SELECT editable FROM templates WHERE id = $1`, id).Scan(&editable)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrNotEditable
}
