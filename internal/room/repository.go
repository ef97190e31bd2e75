package room

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *Repository) CreateRoom(ctx context.Context, rm *Room) error {
	query := "INSERT INTO rooms (title, slug, owner_id) VALUES ($1, $2, $3) RETURNING id, created_at"
	err := r.db.QueryRowContext(ctx, query, rm.Title, rm.Slug, rm.OwnerID).Scan(&rm.ID, &rm.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}
	rm.Members = []int{}
	return nil
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Room, error) {
	rm := &Room{}
	query := "SELECT id, title, slug, owner_id, created_at FROM rooms WHERE slug = $1"
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&rm.ID, &rm.Title, &rm.Slug, &rm.OwnerID, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	members, err := r.members(ctx, rm.ID)
	if err != nil {
		return nil, err
	}
	rm.Members = members
	return rm, nil
}

func (r *Repository) members(ctx context.Context, roomID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM room_members WHERE room_id = $1 ORDER BY user_id", roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// ListForUser returns the rooms the user owns or belongs to, newest
// first, optionally filtered by a title/slug search term.
func (r *Repository) ListForUser(ctx context.Context, userID int, search string) ([]Room, error) {
	query := `SELECT DISTINCT r.id, r.title, r.slug, r.owner_id, r.created_at
	          FROM rooms r
	          LEFT JOIN room_members m ON m.room_id = r.id
	          WHERE (r.owner_id = $1 OR m.user_id = $1)
	            AND (r.title ILIKE $2 OR r.slug ILIKE $2)
	          ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, "%"+search+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.Title, &rm.Slug, &rm.OwnerID, &rm.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		members, err := r.members(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Members = members
	}
	return rooms, nil
}

func (r *Repository) UpdateTitle(ctx context.Context, roomID int, title string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE rooms SET title = $1 WHERE id = $2", title, roomID)
	return err
}

func (r *Repository) DeleteRoom(ctx context.Context, roomID int) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", roomID)
	return err
}

func (r *Repository) RemoveMember(ctx context.Context, roomID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM room_members WHERE room_id = $1 AND user_id = $2", roomID, userID)
	return err
}

func (r *Repository) IsOwnerOrMember(ctx context.Context, roomID, userID int) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM rooms WHERE id = $1 AND owner_id = $2
	            UNION
	            SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2
	          )`
	err := r.db.QueryRowContext(ctx, query, roomID, userID).Scan(&ok)
	return ok, err
}

func (r *Repository) PendingInviteExists(ctx context.Context, inviteObjectID, roomID int) (bool, error) {
	var ok bool
	query := "SELECT EXISTS (SELECT 1 FROM room_invites WHERE invite_object_id = $1 AND room_id = $2)"
	err := r.db.QueryRowContext(ctx, query, inviteObjectID, roomID).Scan(&ok)
	return ok, err
}

// CreateInvites inserts the whole batch in one transaction: either every
// invitee gets a pending invite or none do.
func (r *Repository) CreateInvites(ctx context.Context, creatorID, roomID int, inviteeIDs []int) ([]Invite, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `INSERT INTO room_invites (creator_id, invite_object_id, room_id)
	          VALUES ($1, $2, $3) RETURNING id, created_at`

	invites := make([]Invite, 0, len(inviteeIDs))
	for _, inviteeID := range inviteeIDs {
		inv := Invite{CreatorID: creatorID, InviteObjectID: inviteeID, RoomID: roomID, Status: "pending"}
		err := tx.QueryRowContext(ctx, query, creatorID, inviteeID, roomID).Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrInviteExists
			}
			return nil, err
		}
		invites = append(invites, inv)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *Repository) invites(ctx context.Context, query string, arg int) ([]Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []Invite
	for rows.Next() {
		var inv Invite
		err := rows.Scan(&inv.ID, &inv.CreatorID, &inv.InviteObjectID, &inv.RoomID,
			&inv.RoomSlug, &inv.Status, &inv.CreatedAt)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *Repository) InvitesFrom(ctx context.Context, creatorID int) ([]Invite, error) {
	return r.invites(ctx, `SELECT i.id, i.creator_id, i.invite_object_id, i.room_id, r.slug, i.status, i.created_at
	                       FROM room_invites i JOIN rooms r ON r.id = i.room_id
	                       WHERE i.creator_id = $1 ORDER BY i.id DESC`, creatorID)
}

func (r *Repository) InvitesTo(ctx context.Context, inviteObjectID int) ([]Invite, error) {
	return r.invites(ctx, `SELECT i.id, i.creator_id, i.invite_object_id, i.room_id, r.slug, i.status, i.created_at
	                       FROM room_invites i JOIN rooms r ON r.id = i.room_id
	                       WHERE i.invite_object_id = $1 ORDER BY i.id DESC`, inviteObjectID)
}

func (r *Repository) DeleteInvite(ctx context.Context, id, creatorID int) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM room_invites WHERE id = $1 AND creator_id = $2", id, creatorID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// AcceptInvite grants membership and deletes the invite in one
// transaction. A raced duplicate accept finds no row and reports
// ErrInviteNotFound; the ON CONFLICT guard keeps the grant idempotent.
func (r *Repository) AcceptInvite(ctx context.Context, id, inviteObjectID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var roomID int
	query := "SELECT room_id FROM room_invites WHERE id = $1 AND invite_object_id = $2 FOR UPDATE"
	if err := tx.QueryRowContext(ctx, query, id, inviteObjectID).Scan(&roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInviteNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO room_members (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		roomID, inviteObjectID)
	if err != nil {
		return fmt.Errorf("grant membership: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM room_invites WHERE id = $1", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repository) DeclineInvite(ctx context.Context, id, inviteObjectID int) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM room_invites WHERE id = $1 AND invite_object_id = $2", id, inviteObjectID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (r *Repository) SaveMessage(ctx context.Context, roomID, authorID int, text string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (room_id, author_id, text) VALUES ($1, $2, $3)", roomID, authorID, text)
	return err
}

// RecentMessages returns the newest messages first.
func (r *Repository) RecentMessages(ctx context.Context, roomID, limit int) ([]Message, error) {
	return r.MessagesPage(ctx, roomID, limit, 0)
}

func (r *Repository) MessagesPage(ctx context.Context, roomID, limit, offset int) ([]Message, error) {
	query := `SELECT id, author_id, room_id, text, created_at FROM messages
	          WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.RoomID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) CountMessages(ctx context.Context, roomID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages WHERE room_id = $1", roomID).Scan(&n)
	return n, err
}

// Emails resolves user ids to email addresses for notifications.
func (r *Repository) Emails(ctx context.Context, userIDs []int) ([]string, error) {
	emails := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		var email string
		err := r.db.QueryRowContext(ctx, "SELECT email FROM users WHERE id = $1", id).Scan(&email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func (r *Repository) Username(ctx context.Context, userID int) (string, error) {
	var username string
	err := r.db.QueryRowContext(ctx,
		"SELECT username FROM profiles WHERE user_id = $1", userID).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return username, nil
}
