package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadScenario returns all applications and calls for a scenario.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC
// COLLATE BINARY.
//
// Returns empty slices (not nil) if no records exist for the scenario.
func (j *Journal) ReadScenario(ctx context.Context, scenario string) ([]Application, []Call, error) {
	applications, err := j.ReadApplications(ctx, scenario)
	if err != nil {
		return nil, nil, err
	}

	calls, err := j.ReadCalls(ctx, scenario)
	if err != nil {
		return nil, nil, err
	}

	return applications, calls, nil
}

// ReadApplications returns all applications for a scenario with
// deterministic ordering.
func (j *Journal) ReadApplications(ctx context.Context, scenario string) ([]Application, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, scenario, behavior, tag, target, installed, skipped, outcome, error, seq
		FROM applications
		WHERE scenario = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var applications []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	// Return empty slice instead of nil
	if applications == nil {
		applications = []Application{}
	}

	return applications, nil
}

// ReadCalls returns all calls for a scenario with deterministic ordering.
func (j *Journal) ReadCalls(ctx context.Context, scenario string) ([]Call, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, scenario, target, operation, args, result, outcome, error, seq
		FROM calls
		WHERE scenario = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}

	if calls == nil {
		calls = []Call{}
	}

	return calls, nil
}

// ReadExecutions returns all executions for a scenario with deterministic
// ordering. Executions carry no scenario column; the join through calls
// scopes them.
func (j *Journal) ReadExecutions(ctx context.Context, scenario string) ([]Execution, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT e.id, e.call_id, e.operation, e.receiver, e.seq
		FROM executions e
		JOIN calls c ON e.call_id = c.id
		WHERE c.scenario = ?
		ORDER BY e.seq ASC, e.id ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		var exec Execution
		if err := rows.Scan(&exec.ID, &exec.CallID, &exec.Operation, &exec.Receiver, &exec.Seq); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	if executions == nil {
		executions = []Execution{}
	}

	return executions, nil
}

// ReadTimeline returns the merged event stream for a scenario: every
// application, call, and execution, ordered by seq. Seq values are unique
// within a run, so the kind and name tiebreaks only matter for journals
// merged across clock restarts.
func (j *Journal) ReadTimeline(ctx context.Context, scenario string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT 'application' AS kind, seq, behavior AS name, target, outcome
		FROM applications WHERE scenario = ?
		UNION ALL
		SELECT 'call', seq, operation, target, outcome
		FROM calls WHERE scenario = ?
		UNION ALL
		SELECT 'execution', e.seq, e.operation, e.receiver, 'ran'
		FROM executions e JOIN calls c ON e.call_id = c.id
		WHERE c.scenario = ?
		ORDER BY seq ASC, kind ASC, name COLLATE BINARY ASC
	`, scenario, scenario, scenario)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Kind, &ev.Seq, &ev.Name, &ev.Target, &ev.Outcome); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return events, nil
}

// CountExecutions returns how many times the named operation's body ran
// in a scenario. An empty receiver matches any receiver.
func (j *Journal) CountExecutions(ctx context.Context, scenario, operation, receiver string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM executions e
		JOIN calls c ON e.call_id = c.id
		WHERE c.scenario = ? AND e.operation = ?
	`
	args := []any{scenario, operation}
	if receiver != "" {
		query += " AND e.receiver = ?"
		args = append(args, receiver)
	}

	var count int
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return count, nil
}

// CountCalls returns how many times the named operation was called in a
// scenario, whether or not its body ran. An empty target matches any
// target.
func (j *Journal) CountCalls(ctx context.Context, scenario, operation, target string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM calls
		WHERE scenario = ? AND operation = ?
	`
	args := []any{scenario, operation}
	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}

	var count int
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return count, nil
}

// MaxSeq returns the highest sequence number across all tables, or 0 for
// an empty journal. Used to resume a Clock when appending to an existing
// journal.
func (j *Journal) MaxSeq(ctx context.Context) (int64, error) {
	var highest sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM applications
			UNION ALL
			SELECT seq FROM calls
			UNION ALL
			SELECT seq FROM executions
		)
	`).Scan(&highest)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return highest.Int64, nil
}

// scanApplication scans a row into an Application struct.
func scanApplication(rows *sql.Rows) (Application, error) {
	var app Application
	var installedJSON, skippedJSON string

	if err := rows.Scan(
		&app.ID, &app.Scenario, &app.Behavior, &app.Tag, &app.Target,
		&installedJSON, &skippedJSON, &app.Outcome, &app.Error, &app.Seq,
	); err != nil {
		return Application{}, fmt.Errorf("scan application: %w", err)
	}

	installed, err := unmarshalMembers(installedJSON)
	if err != nil {
		return Application{}, err
	}
	app.Installed = installed

	skipped, err := unmarshalMembers(skippedJSON)
	if err != nil {
		return Application{}, err
	}
	app.Skipped = skipped

	return app, nil
}

// scanCall scans a row into a Call struct.
func scanCall(rows *sql.Rows) (Call, error) {
	var call Call
	if err := rows.Scan(
		&call.ID, &call.Scenario, &call.Target, &call.Operation,
		&call.Args, &call.Result, &call.Outcome, &call.Error, &call.Seq,
	); err != nil {
		return Call{}, fmt.Errorf("scan call: %w", err)
	}
	return call, nil
}
