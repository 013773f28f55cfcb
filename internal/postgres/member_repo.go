package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hapdev05/Room-server/internal/domain"
)

const memberColumns = `room_id, user_id, user_name, user_email, avatar_url,
	role, is_active, joined_at, last_joined_at, left_at`

type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Get(ctx context.Context, roomID, userID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM room_members WHERE room_id=$1 AND user_id=$2`,
		roomID, userID).Scan(
		&m.RoomID, &m.UserID, &m.Name, &m.Email, &m.AvatarURL,
		&m.Role, &m.IsActive, &m.JoinedAt, &m.LastJoinedAt, &m.LeftAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Member, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+memberColumns+` FROM room_members WHERE room_id=$1 ORDER BY joined_at ASC, user_id ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(
			&m.RoomID, &m.UserID, &m.Name, &m.Email, &m.AvatarURL,
			&m.Role, &m.IsActive, &m.JoinedAt, &m.LastJoinedAt, &m.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MemberRepository) InsertCreator(ctx context.Context, m *domain.Member) error {
	return r.insert(ctx, r.db, m)
}

// InsertNew is guarded against capacity races: the room row is locked,
// the active-member count is checked against maxUsers and the insert plus
// current_users bump commit together. Two parallel joins on one room
// cannot both pass the check.
func (r *MemberRepository) InsertNew(ctx context.Context, m *domain.Member, maxUsers int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var mu int
	if err := tx.QueryRow(ctx,
		`SELECT max_users FROM rooms WHERE id=$1 FOR UPDATE`, m.RoomID).Scan(&mu); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		return err
	}
	if mu > 0 {
		maxUsers = mu
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_members WHERE room_id=$1 AND is_active`, m.RoomID).Scan(&count); err != nil {
		return err
	}
	if count >= maxUsers {
		return domain.ErrRoomFull
	}

	if err := r.insert(ctx, tx, m); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE rooms SET current_users=$2, updated_at=now() WHERE id=$1`,
		m.RoomID, count+1); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *MemberRepository) insert(ctx context.Context, q querier, m *domain.Member) error {
	_, err := q.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id, user_name, user_email, avatar_url,
			role, is_active, joined_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		m.RoomID, m.UserID, m.Name, m.Email, m.AvatarURL,
		m.Role, m.IsActive, m.JoinedAt)
	return err
}

func (r *MemberRepository) Reactivate(ctx context.Context, roomID, userID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE room_members SET is_active=true, last_joined_at=$3, left_at=NULL
		WHERE room_id=$1 AND user_id=$2`, roomID, userID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Deactivate(ctx context.Context, roomID, userID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE room_members SET is_active=false, left_at=$3
		WHERE room_id=$1 AND user_id=$2`, roomID, userID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) SetRole(ctx context.Context, roomID, userID string, role domain.Role) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE room_members SET role=$3 WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, role)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) RoomIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT room_id FROM room_members WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
