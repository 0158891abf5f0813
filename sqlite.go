package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Sqlite struct {
	pool *sql.DB
}

func migrateSchema(pool *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(pool, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func NewSqlite(path string) Sqlite {
	pool, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		log.Fatalf("unable to connect to database: %v", err)
	}

	if err = migrateSchema(pool); err != nil {
		log.Fatal(err)
	}

	return Sqlite{
		pool: pool,
	}
}

func (s *Sqlite) GetVideos() ([]Video, error) {
	querySQL := `SELECT id, path, output_path, done, retries FROM video WHERE done = false`
	rows, err := s.pool.Query(querySQL)
	if err != nil {
		return []Video{}, err
	}

	defer rows.Close()
	videos := []Video{}
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.Path, &v.OutputPath, &v.Done, &v.Retries); err != nil {
			return videos, err
		}
		videos = append(videos, v)
	}

	// Check for errors from iterating over rows
	if err := rows.Err(); err != nil {
		return []Video{}, err
	}

	return videos, nil
}

func (s *Sqlite) InsertVideo(video *Video) (int64, error) {
	insertSQL := `INSERT INTO video (path, output_path, done) VALUES (?, ?, ?)`
	statement, err := s.pool.Prepare(insertSQL)
	if err != nil {
		return 0, err
	}

	defer statement.Close()
	video.Done = false
	result, err := statement.Exec(video.Path, video.OutputPath, video.Done)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	video.ID = id
	return id, nil
}

func (s *Sqlite) MarkVideoAsDone(video *Video) error {
	updateSQL := `UPDATE video SET done = true WHERE id = ?`
	statement, err := s.pool.Prepare(updateSQL)
	if err != nil {
		return err
	}
	defer statement.Close()

	_, err = statement.Exec(video.ID)
	if err != nil {
		return err
	}

	video.Done = true
	return nil
}

func (s *Sqlite) DeleteVideoByID(id int64) error {
	deleteSQL := `DELETE FROM video WHERE id = ?`
	statement, err := s.pool.Prepare(deleteSQL)
	if err != nil {
		return err
	}

	defer statement.Close()
	_, err = statement.Exec(id)
	return err
}

func (s *Sqlite) GetVideoRetries(video *Video) (int, error) {
	querySQL := `SELECT retries FROM video WHERE id = ?`
	var retries int
	err := s.pool.QueryRow(querySQL, video.ID).Scan(&retries)
	return retries, err
}

func (s *Sqlite) UpdateVideoRetries(video *Video, retries int) error {
	updateSQL := `UPDATE video SET retries = ? WHERE id = ?`
	statement, err := s.pool.Prepare(updateSQL)
	if err != nil {
		return err
	}
	defer statement.Close()

	_, err = statement.Exec(retries, video.ID)
	if err != nil {
		return err
	}

	video.Retries = retries
	return nil
}

// FailVideo moves a video out of the queue into the failed table,
// keeping the process output for later inspection.
func (s *Sqlite) FailVideo(video *Video, output string, failError string) error {
	tx, err := s.pool.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertSQL := `INSERT INTO failed_video (video_id, path, output_path, process_output, error)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.Exec(insertSQL, video.ID, video.Path, video.OutputPath, output, failError); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM video WHERE id = ?`, video.ID); err != nil {
		return err
	}

	return tx.Commit()
}
