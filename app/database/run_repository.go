package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ RunRepository = (*runRepository)(nil)

var runColumns = []string{
	"id", "triggered_by", "status", "message", "item_count", "sections",
	"chapter_count", "titles", "epub_path", "mobi_path", "started_at", "finished_at",
}

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Start(run Run) error {
	sections, err := encodeList(run.Sections)
	if err != nil {
		return err
	}

	_, err = sq.Insert("runs").
		Columns("id", "triggered_by", "status", "message", "item_count", "sections", "started_at").
		Values(run.ID, run.Trigger, run.Status, run.Message, run.ItemCount, sections, run.StartedAt.UnixNano()).
		RunWith(r.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	return nil
}

func (r *runRepository) Finish(id string, status string, message string, result RunResult) error {
	titles, err := encodeList(result.Titles)
	if err != nil {
		return err
	}

	res, err := sq.Update("runs").
		SetMap(map[string]any{
			"status":        status,
			"message":       message,
			"chapter_count": result.ChapterCount,
			"titles":        titles,
			"epub_path":     result.EpubPath,
			"mobi_path":     result.MobiPath,
			"finished_at":   result.FinishedAt.UnixNano(),
		}).
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finished run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

func (r *runRepository) GetRun(id string) (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		QueryRow()

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	return run, nil
}

func (r *runRepository) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (r *runRepository) GetLatestCompletedRun() (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"status": "complete"}).
		OrderBy("finished_at DESC").
		Limit(1).
		RunWith(r.db).
		QueryRow()

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest completed run: %w", err)
	}

	return run, nil
}

func scanRun(row sq.RowScanner) (*Run, error) {
	var (
		run        Run
		sections   string
		titles     string
		startedAt  int64
		finishedAt sql.NullInt64
	)

	err := row.Scan(&run.ID, &run.Trigger, &run.Status, &run.Message, &run.ItemCount, &sections,
		&run.ChapterCount, &titles, &run.EpubPath, &run.MobiPath, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if run.Sections, err = decodeList(sections); err != nil {
		return nil, err
	}
	if run.Titles, err = decodeList(titles); err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		finished := time.Unix(0, finishedAt.Int64)
		run.FinishedAt = &finished
	}

	return &run, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(data string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return values, nil
}
