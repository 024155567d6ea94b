package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cepalab/signguard/pkg/pg"
)

type pgDB interface {
	pg.DBTX
	pg.TxBeginner
}

// PgStorage writes events to the security_audit_log table.
type PgStorage struct {
	db pgDB
}

func NewPgStorage(db pgDB) *PgStorage {
	if db == nil {
		panic("audit: database cannot be nil")
	}
	return &PgStorage{db: db}
}

const insertEventSQL = `
INSERT INTO security_audit_log
    (id, user_id, action, resource, resource_id, result, error, request_id, ip, user_agent, metadata, created_at)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12)`

func (s *PgStorage) Store(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	if len(events) == 1 {
		return s.insert(ctx, s.db, events[0])
	}
	return pg.WithTx(ctx, s.db, func(ctx context.Context, tx pg.DBTX) error {
		for _, e := range events {
			if err := s.insert(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PgStorage) insert(ctx context.Context, db pg.DBTX, e Event) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return errors.Join(ErrFailedToStoreEvents, err)
		}
	}

	_, err := db.Exec(ctx, insertEventSQL,
		e.ID, e.UserID, e.Action, e.Resource, e.ResourceID, string(e.Result),
		e.Error, e.RequestID, e.IP, e.UserAgent, meta, e.CreatedAt,
	)
	if err != nil {
		return errors.Join(ErrFailedToStoreEvents, err)
	}
	return nil
}

func (s *PgStorage) Query(ctx context.Context, c Criteria) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if c.UserID != "" {
		add("user_id = $%d", c.UserID)
	}
	if c.Action != "" {
		add("action = $%d", c.Action)
	}
	if c.Resource != "" {
		add("resource = $%d", c.Resource)
	}
	if c.ResourceID != "" {
		add("resource_id = $%d", c.ResourceID)
	}
	if c.Result != "" {
		add("result = $%d", string(c.Result))
	}
	if !c.StartTime.IsZero() {
		add("created_at >= $%d", c.StartTime)
	}
	if !c.EndTime.IsZero() {
		add("created_at < $%d", c.EndTime)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id::text, COALESCE(user_id, ''), action, COALESCE(resource, ''), COALESCE(resource_id, ''),
    result, COALESCE(error, ''), COALESCE(request_id, ''), COALESCE(ip, ''), COALESCE(user_agent, ''),
    metadata, created_at
FROM security_audit_log`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	if c.Limit > 0 {
		args = append(args, c.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if c.Offset > 0 {
		args = append(args, c.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Join(ErrFailedToQueryEvents, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e      Event
			result string
			meta   []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &e.ResourceID,
			&result, &e.Error, &e.RequestID, &e.IP, &e.UserAgent, &meta, &e.CreatedAt); err != nil {
			return nil, errors.Join(ErrFailedToQueryEvents, err)
		}
		e.Result = Result(result)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, errors.Join(ErrFailedToQueryEvents, err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrFailedToQueryEvents, err)
	}
	return events, nil
}
