package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hapdev05/Room-server/internal/domain"
)

const linkColumns = `token, room_id, room_code, room_name, created_by, message,
	max_uses, current_uses, views, clicks, joins, is_active,
	expires_at, created_at, last_used_at`

const inviteColumns = `token, room_id, room_code, room_name, from_user_id,
	from_user_name, to_email, message, status, expires_at, created_at,
	responded_at, responded_by`

type ShareRepository struct {
	db *pgxpool.Pool
}

func NewShareRepository(db *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) CreateLink(ctx context.Context, l *domain.ShareLink) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO share_links (token, room_id, room_code, room_name, created_by,
			message, max_uses, is_active, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.Token, l.RoomID, l.RoomCode, l.RoomName, l.CreatedBy,
		l.Message, l.MaxUses, l.IsActive, l.ExpiresAt, l.CreatedAt)
	return err
}

func (r *ShareRepository) GetLink(ctx context.Context, token string) (*domain.ShareLink, error) {
	var l domain.ShareLink
	err := r.db.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM share_links WHERE token=$1`, token).Scan(
		&l.Token, &l.RoomID, &l.RoomCode, &l.RoomName, &l.CreatedBy, &l.Message,
		&l.MaxUses, &l.CurrentUses, &l.Views, &l.Clicks, &l.Joins, &l.IsActive,
		&l.ExpiresAt, &l.CreatedAt, &l.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShareNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *ShareRepository) AddLinkView(ctx context.Context, token string, at time.Time) error {
	return r.bumpLink(ctx, `views=views+1`, token, at)
}

func (r *ShareRepository) AddLinkClick(ctx context.Context, token string, at time.Time) error {
	return r.bumpLink(ctx, `clicks=clicks+1`, token, at)
}

func (r *ShareRepository) AddLinkJoin(ctx context.Context, token string, at time.Time) error {
	return r.bumpLink(ctx, `joins=joins+1, current_uses=current_uses+1`, token, at)
}

func (r *ShareRepository) bumpLink(ctx context.Context, set string, token string, at time.Time) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE share_links SET `+set+`, last_used_at=$2 WHERE token=$1`, token, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

func (r *ShareRepository) DeactivateLink(ctx context.Context, token string, at time.Time) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE share_links SET is_active=false, last_used_at=$2 WHERE token=$1`, token, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrShareNotFound
	}
	return nil
}

func (r *ShareRepository) LinksByRoom(ctx context.Context, roomID string) ([]domain.ShareLink, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM share_links WHERE room_id=$1 ORDER BY created_at DESC`, roomID)
}

func (r *ShareRepository) LinksByUser(ctx context.Context, userID string) ([]domain.ShareLink, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM share_links WHERE created_by=$1 ORDER BY created_at DESC`, userID)
}

func (r *ShareRepository) listLinks(ctx context.Context, query string, arg any) ([]domain.ShareLink, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ShareLink
	for rows.Next() {
		var l domain.ShareLink
		if err := rows.Scan(
			&l.Token, &l.RoomID, &l.RoomCode, &l.RoomName, &l.CreatedBy, &l.Message,
			&l.MaxUses, &l.CurrentUses, &l.Views, &l.Clicks, &l.Joins, &l.IsActive,
			&l.ExpiresAt, &l.CreatedAt, &l.LastUsedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func (r *ShareRepository) CreateInvite(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invitations (token, room_id, room_code, room_name, from_user_id,
			from_user_name, to_email, message, status, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		inv.Token, inv.RoomID, inv.RoomCode, inv.RoomName, inv.FromUserID,
		inv.FromUserName, inv.ToEmail, inv.Message, inv.Status, inv.ExpiresAt, inv.CreatedAt)
	return err
}

func (r *ShareRepository) GetInvite(ctx context.Context, token string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM invitations WHERE token=$1`, token).Scan(
		&inv.Token, &inv.RoomID, &inv.RoomCode, &inv.RoomName, &inv.FromUserID,
		&inv.FromUserName, &inv.ToEmail, &inv.Message, &inv.Status, &inv.ExpiresAt,
		&inv.CreatedAt, &inv.RespondedAt, &inv.RespondedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *ShareRepository) SetInviteStatus(ctx context.Context, token string, status domain.InviteStatus, by *string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE invitations SET status=$2, responded_by=$3, responded_at=$4 WHERE token=$1`,
		token, status, by, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

func (r *ShareRepository) InvitesByRoom(ctx context.Context, roomID string) ([]domain.Invitation, error) {
	return r.listInvites(ctx, `SELECT `+inviteColumns+` FROM invitations WHERE room_id=$1 ORDER BY created_at DESC`, roomID)
}

func (r *ShareRepository) InvitesByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	return r.listInvites(ctx, `SELECT `+inviteColumns+` FROM invitations WHERE to_email=$1 ORDER BY created_at DESC`, email)
}

func (r *ShareRepository) listInvites(ctx context.Context, query string, arg any) ([]domain.Invitation, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(
			&inv.Token, &inv.RoomID, &inv.RoomCode, &inv.RoomName, &inv.FromUserID,
			&inv.FromUserName, &inv.ToEmail, &inv.Message, &inv.Status, &inv.ExpiresAt,
			&inv.CreatedAt, &inv.RespondedAt, &inv.RespondedBy); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
