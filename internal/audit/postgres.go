package audit

import (
	"context"
	"database/sql"
	"errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, event *Event) error {
	var userID any
	if event.UserID != "" {
		userID = event.UserID
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_events(id, action, user_id, ip, details, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		event.ID, string(event.Action), userID, event.IP, event.Details, event.CreatedAt,
	)
	return err
}

func (s *PGStore) List(ctx context.Context, filter Filter) ([]Event, Page, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var (
		total int
		err   error
	)
	if filter.Action != "" {
		err = s.db.QueryRowContext(ctx,
			`select count(*) from audit_events where action=$1`, string(filter.Action)).Scan(&total)
	} else {
		err = s.db.QueryRowContext(ctx,
			`select count(*) from audit_events`).Scan(&total)
	}
	if err != nil {
		return nil, Page{}, err
	}

	meta := Page{
		TotalCount:  total,
		PageSize:    size,
		CurrentPage: page,
		TotalPages:  (total + size - 1) / size,
	}

	offset := (page - 1) * size
	var rows *sql.Rows
	if filter.Action != "" {
		rows, err = s.db.QueryContext(ctx,
			`select id, action, coalesce(user_id,''), ip, details, created_at
			 from audit_events where action=$1
			 order by created_at desc limit $2 offset $3`,
			string(filter.Action), size, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`select id, action, coalesce(user_id,''), ip, details, created_at
			 from audit_events
			 order by created_at desc limit $1 offset $2`,
			size, offset)
	}
	if err != nil {
		return nil, Page{}, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &action, &e.UserID, &e.IP, &e.Details, &e.CreatedAt); err != nil {
			return nil, Page{}, err
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	return events, meta, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, action, coalesce(user_id,''), ip, details, created_at
		 from audit_events where id=$1`, id)
	var e Event
	var action string
	if err := row.Scan(&e.ID, &action, &e.UserID, &e.IP, &e.Details, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Action = Action(action)
	return &e, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from audit_events where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
