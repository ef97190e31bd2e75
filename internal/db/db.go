package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	Conn *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) AutoMigrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            email VARCHAR(255) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            is_active BOOLEAN DEFAULT TRUE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS profiles (
            id SERIAL PRIMARY KEY,
            user_id INT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            username VARCHAR(128) NOT NULL,
            avatar VARCHAR(255) DEFAULT '',
            description TEXT DEFAULT '',
            first_name VARCHAR(128) DEFAULT '',
            last_name VARCHAR(128) DEFAULT '',
            birth_date DATE,
            location VARCHAR(128) DEFAULT ''
        )`,

		`CREATE TABLE IF NOT EXISTS friends (
            user_id INT REFERENCES users(id) ON DELETE CASCADE,
            friend_id INT REFERENCES users(id) ON DELETE CASCADE,
            PRIMARY KEY (user_id, friend_id)
        )`,

		`CREATE TABLE IF NOT EXISTS friend_requests (
            id SERIAL PRIMARY KEY,
            creator_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            friend_object_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            status VARCHAR(20) DEFAULT 'pending',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (creator_id, friend_object_id)
        )`,

		`CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            title VARCHAR(128) NOT NULL,
            slug VARCHAR(128) UNIQUE NOT NULL,
            owner_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS room_members (
            room_id INT REFERENCES rooms(id) ON DELETE CASCADE,
            user_id INT REFERENCES users(id) ON DELETE CASCADE,
            joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (room_id, user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS room_invites (
            id SERIAL PRIMARY KEY,
            creator_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            invite_object_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            status VARCHAR(20) DEFAULT 'pending',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (invite_object_id, room_id)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            author_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            text TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
	}

	for _, query := range queries {
		_, err := d.Conn.Exec(query)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
