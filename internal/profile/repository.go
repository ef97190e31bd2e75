package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateForUser(ctx context.Context, userID int, username string) error {
	query := "INSERT INTO profiles (user_id, username) VALUES ($1, $2)"
	_, err := r.db.ExecContext(ctx, query, userID, username)
	return err
}

func (r *Repository) GetByUserID(ctx context.Context, userID int) (*Profile, error) {
	p := &Profile{}
	query := `SELECT user_id, username, avatar, description, first_name, last_name, birth_date, location
	          FROM profiles WHERE user_id = $1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &p.Avatar, &p.Description,
		&p.FirstName, &p.LastName, &p.BirthDate, &p.Location,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	friends, err := r.Friends(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Friends = friends
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p *Profile) error {
	query := `UPDATE profiles
	          SET username = $1, avatar = $2, description = $3,
	              first_name = $4, last_name = $5, birth_date = $6, location = $7
	          WHERE user_id = $8`
	res, err := r.db.ExecContext(ctx, query,
		p.Username, p.Avatar, p.Description,
		p.FirstName, p.LastName, p.BirthDate, p.Location, p.UserID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, search string) ([]ListItem, error) {
	query := `SELECT user_id, username, avatar FROM profiles
	          WHERE username ILIKE $1 ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query, "%"+search+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListItem
	for rows.Next() {
		var it ListItem
		if err := rows.Scan(&it.UserID, &it.Username, &it.Avatar); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) Friends(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT friend_id FROM friends WHERE user_id = $1 ORDER BY friend_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		friends = append(friends, id)
	}
	return friends, rows.Err()
}

func (r *Repository) AreFriends(ctx context.Context, userID, friendID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM friends WHERE user_id = $1 AND friend_id = $2)"
	err := r.db.QueryRowContext(ctx, query, userID, friendID).Scan(&exists)
	return exists, err
}

// RemoveFriends drops the friendship in both directions.
func (r *Repository) RemoveFriends(ctx context.Context, userID, friendID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := "DELETE FROM friends WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)"
	if _, err := tx.ExecContext(ctx, query, userID, friendID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repository) GetEmail(ctx context.Context, userID int) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, "SELECT email FROM users WHERE id = $1", userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	return email, nil
}

// RelationExists reports whether any friend request row links the two
// users, in either direction.
func (r *Repository) RelationExists(ctx context.Context, a, b int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM friend_requests
	            WHERE creator_id IN ($1, $2) AND friend_object_id IN ($1, $2)
	          )`
	err := r.db.QueryRowContext(ctx, query, a, b).Scan(&exists)
	return exists, err
}

func (r *Repository) CreateRequest(ctx context.Context, creatorID, friendObjectID int) (*FriendRequest, error) {
	req := &FriendRequest{CreatorID: creatorID, FriendObjectID: friendObjectID, Status: "pending"}
	query := `INSERT INTO friend_requests (creator_id, friend_object_id)
	          VALUES ($1, $2) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, creatorID, friendObjectID).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Repository) requests(ctx context.Context, query string, arg int) ([]FriendRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []FriendRequest
	for rows.Next() {
		var req FriendRequest
		if err := rows.Scan(&req.ID, &req.CreatorID, &req.FriendObjectID, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *Repository) RequestsFrom(ctx context.Context, creatorID int) ([]FriendRequest, error) {
	return r.requests(ctx, `SELECT id, creator_id, friend_object_id, status, created_at
	                        FROM friend_requests WHERE creator_id = $1 ORDER BY id DESC`, creatorID)
}

func (r *Repository) RequestsTo(ctx context.Context, friendObjectID int) ([]FriendRequest, error) {
	return r.requests(ctx, `SELECT id, creator_id, friend_object_id, status, created_at
	                        FROM friend_requests WHERE friend_object_id = $1 ORDER BY id DESC`, friendObjectID)
}

func (r *Repository) DeleteRequest(ctx context.Context, id, creatorID int) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM friend_requests WHERE id = $1 AND creator_id = $2", id, creatorID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// AcceptRequest grants mutual friendship and deletes the request in one
// transaction. A raced duplicate accept finds no row and reports
// ErrRequestNotFound; the ON CONFLICT guards keep the grant idempotent.
func (r *Repository) AcceptRequest(ctx context.Context, id, friendObjectID int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var creatorID int
	query := "SELECT creator_id FROM friend_requests WHERE id = $1 AND friend_object_id = $2 FOR UPDATE"
	if err := tx.QueryRowContext(ctx, query, id, friendObjectID).Scan(&creatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRequestNotFound
		}
		return 0, err
	}

	for _, pair := range [][2]int{{creatorID, friendObjectID}, {friendObjectID, creatorID}} {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO friends (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			pair[0], pair[1])
		if err != nil {
			return 0, fmt.Errorf("grant friendship: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM friend_requests WHERE id = $1", id); err != nil {
		return 0, err
	}
	return creatorID, tx.Commit()
}

func (r *Repository) DeclineRequest(ctx context.Context, id, friendObjectID int) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM friend_requests WHERE id = $1 AND friend_object_id = $2", id, friendObjectID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRequestNotFound
	}
	return nil
}
