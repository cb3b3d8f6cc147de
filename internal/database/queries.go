package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kemonocast/internal/domain"
)

// HasPosts reports whether at least one post is stored for the creator.
func (d *Database) HasPosts(ctx context.Context, service, creatorID string) (bool, error) {
	count, err := d.CountPosts(ctx, service, creatorID)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CountPosts returns the number of stored posts for the creator.
func (d *Database) CountPosts(ctx context.Context, service, creatorID string) (int64, error) {
	query := "select count(*) from posts where service = ? and creator_id = ?"

	var count int64
	if err := d.db.QueryRowContext(ctx, query, service, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	return count, nil
}

// GetPosts returns every stored post for the creator, newest first.
// Ties on the published timestamp keep insertion order.
func (d *Database) GetPosts(
	ctx context.Context,
	service string,
	creatorID string,
) ([]domain.Post, error) {
	query := `select post_data from posts
	where service = ? and creator_id = ?
	order by published desc, rowid asc`

	rows, err := d.db.QueryContext(ctx, query, service, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"service", service,
				"creatorID", creatorID,
				"operation", "GetPosts")
		}
	}()

	var posts []domain.Post
	for rows.Next() {
		var postData string
		if err = rows.Scan(&postData); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var post domain.Post
		if err = json.Unmarshal([]byte(postData), &post); err != nil {
			return nil, fmt.Errorf("failed to decode post data: %w", err)
		}

		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return posts, nil
}

// SavePosts upserts the batch in one transaction and returns the number
// of posts processed. A post replaces any stored row with the same
// (id, service, creator_id); duplicates within the batch are allowed and
// the last one wins.
func (d *Database) SavePosts(ctx context.Context, posts []domain.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil &&
			!errors.Is(rollbackErr, sql.ErrTxDone) {
			d.log.ErrorContext(ctx, "Failed to rollback transaction",
				"error", rollbackErr,
				"operation", "SavePosts")
		}
	}()

	query := `insert into posts (id, service, creator_id, post_data, published, fetched_at)
	values (?, ?, ?, ?, ?, ?)
	on conflict (id, service, creator_id) do update
	set post_data = excluded.post_data,
	published = excluded.published,
	fetched_at = excluded.fetched_at`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			d.log.ErrorContext(ctx, "Failed to close statement",
				"error", closeErr,
				"operation", "SavePosts")
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	saved := 0

	for _, post := range posts {
		postData, marshalErr := json.Marshal(post)
		if marshalErr != nil {
			return saved, fmt.Errorf("failed to encode post data: %w", marshalErr)
		}

		if _, err = stmt.ExecContext(ctx,
			post.ID,
			post.Service,
			post.User,
			string(postData),
			post.Published,
			now,
		); err != nil {
			return saved, fmt.Errorf("failed to upsert post: %w", err)
		}
		saved++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return saved, nil
}

// MarkSynced records the sync completion time for the creator.
// The backfill flag is sticky: once set by a completed backfill it is
// never cleared by later incremental syncs.
func (d *Database) MarkSynced(
	ctx context.Context,
	service string,
	creatorID string,
	backfillComplete bool,
) error {
	query := `insert into creators (service, creator_id, last_synced, backfill_complete)
	values (?, ?, ?, ?)
	on conflict (service, creator_id) do update
	set last_synced = excluded.last_synced,
	backfill_complete = max(backfill_complete, excluded.backfill_complete)`

	completeFlag := 0
	if backfillComplete {
		completeFlag = 1
	}

	_, err := d.db.ExecContext(ctx, query,
		service,
		creatorID,
		time.Now().UTC().Format(time.RFC3339),
		completeFlag,
	)

	return err
}

// GetLastSynced returns the last sync time for the creator, or nil when
// the creator has never been synced.
func (d *Database) GetLastSynced(
	ctx context.Context,
	service string,
	creatorID string,
) (*time.Time, error) {
	query := "select last_synced from creators where service = ? and creator_id = ?"

	var lastSynced string
	err := d.db.QueryRowContext(ctx, query, service, creatorID).Scan(&lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	t, err := time.Parse(time.RFC3339, lastSynced)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last synced time: %w", err)
	}

	return &t, nil
}

// IsBackfillComplete reports whether a full backfill has finished for the
// creator. Row existence in posts is not consulted: a crash mid-backfill
// leaves rows behind without this flag set.
func (d *Database) IsBackfillComplete(
	ctx context.Context,
	service string,
	creatorID string,
) (bool, error) {
	query := "select backfill_complete from creators where service = ? and creator_id = ?"

	var complete int64
	err := d.db.QueryRowContext(ctx, query, service, creatorID).Scan(&complete)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}

	return complete != 0, nil
}

// ListCreators returns every creator that has a sync record.
func (d *Database) ListCreators(ctx context.Context) ([]domain.CreatorRef, error) {
	query := "select service, creator_id from creators order by service, creator_id"

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "ListCreators")
		}
	}()

	var creators []domain.CreatorRef
	for rows.Next() {
		var c domain.CreatorRef
		if err = rows.Scan(&c.Service, &c.CreatorID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		creators = append(creators, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return creators, nil
}
