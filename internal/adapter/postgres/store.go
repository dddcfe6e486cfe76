package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rahulnsecc/AI-4-all/internal/domain"
	"github.com/rahulnsecc/AI-4-all/internal/domain/session"
	"github.com/rahulnsecc/AI-4-all/internal/domain/task"
	"github.com/rahulnsecc/AI-4-all/internal/port/store"
)

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO tasks (kind, payload) VALUES ($1, $2)
		 RETURNING id, created_at`,
		string(t.Kind), t.Payload,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, payload, created_at FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Kind, &t.Payload, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, payload, created_at FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Kind, &t.Payload, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// --- Sessions ---

func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (task_id) VALUES ($1)
		 RETURNING id, status, created_at`,
		sess.TaskID,
	).Scan(&sess.ID, &sess.Status, &sess.CreatedAt)
	if err != nil {
		// The partial unique index on (task_id) WHERE status = 'open'
		// enforces one active session per task.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create session for task %s: %w", sess.TaskID, domain.ErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByTask(ctx context.Context, taskID string) (*session.Session, error) {
	var sess session.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, task_id, status, diagnosis, created_at, closed_at
		 FROM sessions WHERE task_id = $1 ORDER BY created_at DESC LIMIT 1`, taskID,
	).Scan(&sess.ID, &sess.TaskID, &sess.Status, &sess.Diagnosis, &sess.CreatedAt, &sess.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session for task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session for task %s: %w", taskID, err)
	}

	turns, err := s.listTurns(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns
	return &sess, nil
}

// AppendTurn assigns the next sequence number inside a transaction. The
// unique (session_id, seq) constraint guarantees no two appends share a seq
// even under concurrent writers.
func (s *Store) AppendTurn(ctx context.Context, turn *session.Turn) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	payload := turn.Payload
	if payload == nil {
		payload = []byte(`{}`)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO session_turns (session_id, task_id, seq, kind, actor, payload)
		 SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5
		 FROM session_turns WHERE session_id = $1
		 RETURNING id, seq, created_at`,
		turn.SessionID, turn.TaskID, string(turn.Kind), turn.Actor, payload,
	).Scan(&turn.ID, &turn.Seq, &turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) CloseSession(ctx context.Context, sessionID string, status session.Status, diagnosis string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET status = $2, diagnosis = $3, closed_at = now()
		 WHERE id = $1 AND status = 'open'`,
		sessionID, string(status), diagnosis)
	if err != nil {
		return fmt.Errorf("close session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("close session %s: %w", sessionID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) listTurns(ctx context.Context, sessionID string) ([]session.Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, task_id, seq, kind, actor, payload, created_at
		 FROM session_turns WHERE session_id = $1 ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var t session.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TaskID, &t.Seq, &t.Kind, &t.Actor, &t.Payload, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// --- Reports ---

func (s *Store) SaveReport(ctx context.Context, r *store.Report) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (task_id, kind, payload) VALUES ($1, $2, $3)
		 ON CONFLICT (task_id) DO UPDATE SET kind = EXCLUDED.kind, payload = EXCLUDED.payload, updated_at = now()`,
		r.TaskID, r.Kind, r.Payload)
	if err != nil {
		return fmt.Errorf("save report for task %s: %w", r.TaskID, err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, taskID string) (*store.Report, error) {
	var r store.Report
	err := s.pool.QueryRow(ctx,
		`SELECT task_id, kind, payload FROM reports WHERE task_id = $1`, taskID,
	).Scan(&r.TaskID, &r.Kind, &r.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get report for task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get report for task %s: %w", taskID, err)
	}
	return &r, nil
}

// --- API keys ---

func (s *Store) CreateAPIKey(ctx context.Context, name, hash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (name, key_hash) VALUES ($1, $2)`, name, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create api key %s: %w", name, domain.ErrConflict)
		}
		return fmt.Errorf("create api key %s: %w", name, err)
	}
	return nil
}

func (s *Store) ListAPIKeyHashes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key_hash FROM api_keys`)
	if err != nil {
		return nil, fmt.Errorf("list api key hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan api key hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
