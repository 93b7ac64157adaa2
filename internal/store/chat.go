package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatEntry is one append-only transcript row: the user's message and the
// assistant collaborator's reply.
type ChatEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user"`
	BusinessID  int64     `json:"business"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatStore struct {
	db *pgxpool.Pool
}

func (s *ChatStore) Create(ctx context.Context, entry *ChatEntry) error {
	query := `
	  INSERT INTO chat_history (user_id, business_id, user_message, ai_response)
	  VALUES ($1, $2, $3, $4)
	  RETURNING id, timestamp
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return s.db.QueryRow(
		ctx, query,
		entry.UserID, entry.BusinessID, entry.UserMessage, entry.AIResponse,
	).Scan(&entry.ID, &entry.Timestamp)
}

func (s *ChatStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]ChatEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_history WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
	  SELECT id, user_id, business_id, user_message, ai_response, timestamp
	  FROM chat_history
	  WHERE user_id = $1
	  ORDER BY timestamp DESC
	  LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []ChatEntry
	for rows.Next() {
		var e ChatEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.BusinessID, &e.UserMessage, &e.AIResponse, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
