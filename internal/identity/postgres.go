package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"identra.org/internal/ids"
)

const (
	pgErrUniqueViolation = "23505"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Accounts keep the active flag as
// a smallint (1/0) to match the upstream schema.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const accountColumns = `id, username, display_name, password_hash, active, failed_logins, locked_until, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var (
		a      Account
		active int16
		locked sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.DisplayName, &a.PasswordHash, &active,
		&a.FailedLogins, &locked, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Active = active == 1
	if locked.Valid {
		a.LockedUntil = locked.Time
	}
	return &a, nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username=$1`, username)
	return scanAccount(row)
}

func (s *PGStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, a *Account) error {
	if strings.TrimSpace(a.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	active := int16(0)
	if a.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, username, display_name, password_hash, active)
		 values($1,$2,$3,$4,$5)`,
		a.ID, a.Username, a.DisplayName, a.PasswordHash, active,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s", ErrConflict, a.Username)
	}
	return err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id=$1`, id)
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

func (s *PGStore) Roles(ctx context.Context, accountID string) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select role from account_roles where account_id=$1 order by role`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *PGStore) AssignRole(ctx context.Context, accountID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx,
		`insert into account_roles(account_id, role) values($1,$2) on conflict do nothing`,
		accountID, role.String(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: role %s already assigned", ErrConflict, role)
	}
	return nil
}

func (s *PGStore) RemoveRole(ctx context.Context, accountID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx,
		`delete from account_roles where account_id=$1 and role=$2`,
		accountID, role.String(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: role %s is not assigned", ErrNotFound, role)
	}
	return nil
}

func (s *PGStore) RegisterLoginFailure(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		update accounts
		set failed_logins = failed_logins + 1,
		    locked_until = case
		        when failed_logins + 1 >= $2 then now() + $3::interval
		        else locked_until
		    end,
		    updated_at = now()
		where id = $1`,
		accountID, MaxLoginFailures, LockoutDuration.String(),
	)
	return err
}

func (s *PGStore) ResetLoginFailures(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `
		update accounts
		set failed_logins = 0, locked_until = null, updated_at = now()
		where id = $1`,
		accountID,
	)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
