package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hapdev05/Room-server/internal/domain"
)

const roomColumns = `id, code, name, description, created_by, creator_name,
	max_users, current_users, is_private, password_hash, is_active,
	created_at, updated_at, closed_at`

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (id, code, name, description, created_by, creator_name,
			max_users, current_users, is_private, password_hash, is_active,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		room.ID, room.Code, room.Name, room.Description, room.CreatedBy, room.CreatorName,
		room.MaxUsers, room.CurrentUsers, room.IsPrivate, room.PasswordHash, room.IsActive,
		room.CreatedAt, room.UpdatedAt)
	return err
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id)
}

func (r *RoomRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code=$1 AND is_active`, code)
}

func (r *RoomRepository) getOne(ctx context.Context, query string, arg any) (*domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rm.ID, &rm.Code, &rm.Name, &rm.Description, &rm.CreatedBy, &rm.CreatorName,
		&rm.MaxUsers, &rm.CurrentUsers, &rm.IsPrivate, &rm.PasswordHash, &rm.IsActive,
		&rm.CreatedAt, &rm.UpdatedAt, &rm.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE code=$1 AND is_active)`, code).Scan(&exists)
	return exists, err
}

// Update merges only the fields named by the patch.
func (r *RoomRepository) Update(ctx context.Context, id string, patch domain.RoomPatch) error {
	sets := []string{"updated_at=now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.MaxUsers != nil {
		add("max_users", *patch.MaxUsers)
	}
	if patch.IsPrivate != nil {
		add("is_private", *patch.IsPrivate)
	}
	if patch.PasswordHash != nil {
		add("password_hash", *patch.PasswordHash)
	} else if patch.ClearPassword {
		sets = append(sets, "password_hash=NULL")
	}
	if patch.CreatedBy != nil {
		add("created_by", *patch.CreatedBy)
	}
	if patch.CreatorName != nil {
		add("creator_name", *patch.CreatorName)
	}

	query := `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) SetCurrentUsers(ctx context.Context, id string, n int) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE rooms SET current_users=$2, updated_at=now() WHERE id=$1`, id, n)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) Close(ctx context.Context, id string, at time.Time) error {
	// idempotent: closing a closed room leaves closed_at as it was
	cmd, err := r.db.Exec(ctx, `
		UPDATE rooms SET is_active=false, closed_at=COALESCE(closed_at, $2), updated_at=now()
		WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) ListActive(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(
			&rm.ID, &rm.Code, &rm.Name, &rm.Description, &rm.CreatedBy, &rm.CreatorName,
			&rm.MaxUsers, &rm.CurrentUsers, &rm.IsPrivate, &rm.PasswordHash, &rm.IsActive,
			&rm.CreatedAt, &rm.UpdatedAt, &rm.ClosedAt); err != nil {
			return nil, err
		}
		list = append(list, rm)
	}
	return list, rows.Err()
}
