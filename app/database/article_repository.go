package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lysyi3m/secnews/app/archive"
)

var _ ArticleRepository = (*articleRepository)(nil)

const DefaultSearchLimit = 50

type articleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) ArticleRepository {
	return &articleRepository{db: db}
}

// SyncArchive makes the articles table match entries exactly. It returns the
// number of rows upserted and deleted.
func (r *articleRepository) SyncArchive(ctx context.Context, entries []archive.Entry) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stale, err := articleIDs(ctx, tx)
	if err != nil {
		return 0, 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (id, title, link, date, description, source, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			link = excluded.link,
			date = excluded.date,
			description = excluded.description,
			source = excluded.source,
			first_seen = excluded.first_seen,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, entry.ID, entry.Title, entry.Link, entry.Date,
			entry.Description, entry.Source, entry.FirstSeen, entry.LastSeen); err != nil {
			return 0, 0, fmt.Errorf("failed to upsert article: %w", err)
		}
		delete(stale, entry.ID)
	}

	for id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
			return 0, 0, fmt.Errorf("failed to delete article: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(entries), len(stale), nil
}

func articleIDs(ctx context.Context, tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan article id: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return ids, nil
}

// Search returns articles whose title or description contains every
// whitespace-separated term of query, newest first.
func (r *articleRepository) Search(ctx context.Context, query string, limit int) ([]archive.Entry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var conditions []string
	var args []any
	for _, term := range strings.Fields(query) {
		pattern := "%" + escapeLike(term) + "%"
		conditions = append(conditions, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, link, date, description, source, first_seen, last_seen
		FROM articles
		`+where+`
		ORDER BY first_seen DESC, id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	entries := []archive.Entry{}
	for rows.Next() {
		var entry archive.Entry
		err := rows.Scan(
			&entry.ID, &entry.Title, &entry.Link, &entry.Date,
			&entry.Description, &entry.Source, &entry.FirstSeen, &entry.LastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return entries, nil
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func (r *articleRepository) GetStats(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM articles
		GROUP BY source
		ORDER BY COUNT(*) DESC, source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get article stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{Sources: []SourceCount{}}
	for rows.Next() {
		var count SourceCount
		if err := rows.Scan(&count.Source, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total += count.Count
		stats.Sources = append(stats.Sources, count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}

	return stats, nil
}
