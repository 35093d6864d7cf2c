package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate key value")
	ErrForeignKey     = errors.New("foreign key violation")
	ErrCheckViolation = errors.New("check constraint violation")
)

// Unique constraint names, shared by the schema and the in-memory store.
const (
	ConstraintWorkspaceSlug = "workspaces_slug_key"
	ConstraintMemberPair    = "workspace_members_workspace_id_user_id_key"
	ConstraintUserEmail     = "users_email_key"
)

// DuplicateError matches ErrDuplicate and carries the violated constraint.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDuplicate, e.Constraint)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsDuplicate reports whether err is a unique violation of constraint.
func IsDuplicate(err error, constraint string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}

// ListOptions narrows and orders list queries. Unknown sort keys fall back
// to creation order.
type ListOptions struct {
	Sort   string
	Status string
	Limit  int
	Offset int
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRunner interface {
	withTx(ctx context.Context, fn func(tx *Repositories) error) error
	ping(ctx context.Context) error
}

// ============================================
// Repositories Container
// ============================================

type Repositories struct {
	UserRepo      UserRepository
	WorkspaceRepo WorkspaceRepository
	MemberRepo    MemberRepository
	ProjectRepo   ProjectRepository
	TaskRepo      TaskRepository
	CommentRepo   CommentRepository

	runner txRunner
}

// WithTx runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Calling WithTx on repositories already bound to a transaction reuses it.
func (r *Repositories) WithTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.runner.withTx(ctx, fn)
}

func (r *Repositories) Ping(ctx context.Context) error {
	return r.runner.ping(ctx)
}

// NewPgRepositories creates PostgreSQL-backed repositories
func NewPgRepositories(pool *pgxpool.Pool) *Repositories {
	return newPgRepositories(pool, &pgPoolRunner{pool: pool})
}

func newPgRepositories(db DBTX, runner txRunner) *Repositories {
	return &Repositories{
		UserRepo:      &pgUserRepository{db: db},
		WorkspaceRepo: &pgWorkspaceRepository{db: db},
		MemberRepo:    &pgMemberRepository{db: db},
		ProjectRepo:   &pgProjectRepository{db: db},
		TaskRepo:      &pgTaskRepository{db: db},
		CommentRepo:   &pgCommentRepository{db: db},
		runner:        runner,
	}
}

type pgPoolRunner struct {
	pool *pgxpool.Pool
}

func (p *pgPoolRunner) withTx(ctx context.Context, fn func(tx *Repositories) error) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPgRepositories(tx, &pgTxRunner{tx: tx})); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapPgError(err))
	}
	return nil
}

func (p *pgPoolRunner) ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type pgTxRunner struct {
	tx pgx.Tx
}

func (t *pgTxRunner) withTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return fn(newPgRepositories(t.tx, t))
}

func (t *pgTxRunner) ping(ctx context.Context) error {
	return t.tx.Conn().Ping(ctx)
}

// mapPgError translates driver errors into repository errors.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &DuplicateError{Constraint: pgErr.ConstraintName}
		case "23503":
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		case "23514", "23502":
			return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.ConstraintName)
		case "22P02":
			// malformed uuid input
			return ErrNotFound
		}
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pageClause(opts ListOptions, args []any) (string, []any) {
	clause := ""
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return clause, args
}

// absentAsNil lets Find* return (nil, nil) for missing rows.
func absentAsNil(err error) error {
	if err = mapPgError(err); errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
