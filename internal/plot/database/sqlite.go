package database

import (
	"context"
	"database/sql"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteReader reads the results recorded by an evaluation run.
type SQLiteReader struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteReader, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &SQLiteReader{db: db}, nil
}

func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

// LatestRun returns the id of the most recently started run.
func (r *SQLiteReader) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT run_id FROM runs ORDER BY started DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no run recorded")
	}
	return id, err
}

// QuerySummaries mirrors PlotDBClient.QuerySummaries for a local file.
func (r *SQLiteReader) QuerySummaries(ctx context.Context, runID string) ([]RatioSeries, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT policy, memory_share_min, memory_share_max, utilisation, systems, schedulable, ratio
		FROM summaries
		WHERE run_id = ?
		ORDER BY policy, memory_share_min, memory_share_max, utilisation`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	type key struct {
		policy   string
		min, max int64
	}
	series := make(map[key]*RatioSeries)
	var order []key
	shares := make(map[[2]int64]bool)

	for rows.Next() {
		var k key
		var p RatioPoint
		if err := rows.Scan(&k.policy, &k.min, &k.max, &p.Utilisation, &p.Systems, &p.Schedulable, &p.Ratio); err != nil {
			return nil, err
		}
		s, ok := series[k]
		if !ok {
			s = &RatioSeries{Policy: k.policy}
			series[k] = s
			order = append(order, k)
		}
		s.Points = append(s.Points, p)
		shares[[2]int64{k.min, k.max}] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]RatioSeries, 0, len(order))
	for _, k := range order {
		s := series[k]
		s.Label = shareLabel(k.policy, k.min, k.max, len(shares) > 1)
		out = append(out, *s)
	}
	return out, nil
}

func (r *SQLiteReader) QueryRunInfo(ctx context.Context, runID string) (*RunInfo, error) {
	info := &RunInfo{RunID: runID}
	var hostname, cpuModel sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT name, description, checksum, started, finished, systems, hostname, cpu_model
		FROM runs WHERE run_id = ?`, runID).Scan(
		&info.Name, &info.Description, &info.Checksum, &info.Started, &info.Finished,
		&info.Systems, &hostname, &cpuModel)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no metadata found for run %s", runID)
	}
	if err != nil {
		return nil, err
	}
	info.Hostname, info.CPUModel = hostname.String, cpuModel.String
	return info, nil
}
