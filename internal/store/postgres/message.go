package postgres

import (
	"context"
	"fmt"

	"daqpanel/internal/store"

	"github.com/google/uuid"
)

const messageColumns = `id, template_id, run_id, client_id, target_uid, message_type, payload, status, error_message, sent_at`

// CreateMessage inserts a message row together with its parameter values.
// The row is written in one transaction so a dispatch record is never
// half-persisted.
func (s *Store) CreateMessage(ctx context.Context, msg *store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (id, template_id, run_id, client_id, target_uid, message_type, payload, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, query,
		msg.ID, msg.TemplateID, msg.RunID, msg.ClientID, msg.TargetUID,
		msg.MessageType, []byte(msg.Payload), msg.Status, msg.ErrorMessage, msg.SentAt)
	if err != nil {
		return err
	}

	for name, value := range msg.ParameterValues {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO message_parameter_values (message_id, name, value) VALUES ($1, $2, $3)`,
			msg.ID, name, value)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListMessages returns messages newest first, optionally filtered by run
// or client.
func (s *Store) ListMessages(ctx context.Context, runID *uuid.UUID, clientID *string, limit, offset int) ([]store.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE 1=1"
	var args []any

	if runID != nil {
		args = append(args, *runID)
		query += fmt.Sprintf(" AND run_id = $%d", len(args))
	}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY sent_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []store.Message
	for rows.Next() {
		var msg store.Message
		var payload []byte
		if err := rows.Scan(
			&msg.ID, &msg.TemplateID, &msg.RunID, &msg.ClientID, &msg.TargetUID,
			&msg.MessageType, &payload, &msg.Status, &msg.ErrorMessage, &msg.SentAt,
		); err != nil {
			return nil, err
		}
		msg.Payload = payload
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
