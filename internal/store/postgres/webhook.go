package postgres

import (
	"context"
	"database/sql"
	"errors"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

const webhookColumns = `id, name, url, secret, trigger_on_run, trigger_on_message, active, payload_template, created_at`

// CreateWebhook inserts a new webhook row.
func (s *Store) CreateWebhook(ctx context.Context, w *store.Webhook) error {
	query := `
		INSERT INTO webhooks (id, name, url, secret, trigger_on_run, trigger_on_message, active, payload_template, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.Name, w.URL, w.Secret, w.TriggerOnRun, w.TriggerOnMessage,
		w.Active, w.PayloadTemplate, w.CreatedAt)
	return err
}

// GetWebhookByID returns a webhook by its ID.
func (s *Store) GetWebhookByID(ctx context.Context, id uuid.UUID) (*store.Webhook, error) {
	query := "SELECT " + webhookColumns + " FROM webhooks WHERE id = $1"
	return scanWebhook(s.db.QueryRowContext(ctx, query, id))
}

// ListWebhooks returns all webhooks ordered by name.
func (s *Store) ListWebhooks(ctx context.Context) ([]store.Webhook, error) {
	return s.queryWebhooks(ctx, "SELECT "+webhookColumns+" FROM webhooks ORDER BY name")
}

// ListActiveWebhooks returns active webhooks whose trigger flag for the
// given event class is set.
func (s *Store) ListActiveWebhooks(ctx context.Context, trigger store.WebhookTrigger) ([]store.Webhook, error) {
	column := "trigger_on_run"
	if trigger == store.WebhookTriggerMessage {
		column = "trigger_on_message"
	}

	query := "SELECT " + webhookColumns + " FROM webhooks WHERE active = TRUE AND " + column + " = TRUE"
	return s.queryWebhooks(ctx, query)
}

// UpdateWebhook replaces all mutable fields of a webhook.
func (s *Store) UpdateWebhook(ctx context.Context, w *store.Webhook) error {
	query := `
		UPDATE webhooks
		SET name = $2, url = $3, secret = $4, trigger_on_run = $5,
		    trigger_on_message = $6, active = $7, payload_template = $8
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		w.ID, w.Name, w.URL, w.Secret, w.TriggerOnRun, w.TriggerOnMessage,
		w.Active, w.PayloadTemplate)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteWebhook removes a webhook.
func (s *Store) DeleteWebhook(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) queryWebhooks(ctx context.Context, query string, args ...any) ([]store.Webhook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []store.Webhook
	for rows.Next() {
		hook, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, *hook)
	}
	return hooks, rows.Err()
}

func scanWebhook(row rowScanner) (*store.Webhook, error) {
	var w store.Webhook
	err := row.Scan(
		&w.ID, &w.Name, &w.URL, &w.Secret, &w.TriggerOnRun, &w.TriggerOnMessage,
		&w.Active, &w.PayloadTemplate, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
