package journal

import (
	"context"
	"fmt"
)

// WriteApplication inserts an application record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored. Other constraint violations (e.g., NOT NULL) will
// still return errors.
func (j *Journal) WriteApplication(ctx context.Context, app Application) error {
	installedJSON, err := marshalMembers(app.Installed)
	if err != nil {
		return fmt.Errorf("write application: %w", err)
	}
	skippedJSON, err := marshalMembers(app.Skipped)
	if err != nil {
		return fmt.Errorf("write application: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO applications
		(id, scenario, behavior, tag, target, installed, skipped, outcome, error, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		app.ID,
		app.Scenario,
		app.Behavior,
		app.Tag,
		app.Target,
		installedJSON,
		skippedJSON,
		app.Outcome,
		app.Error,
		app.Seq,
	)
	if err != nil {
		return fmt.Errorf("write application: %w", err)
	}

	return nil
}

// WriteCall inserts a call record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate writes are
// silently ignored.
//
// Note: executions referencing this call must be written after it
// (foreign key constraint).
func (j *Journal) WriteCall(ctx context.Context, call Call) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, scenario, target, operation, args, result, outcome, error, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		call.ID,
		call.Scenario,
		call.Target,
		call.Operation,
		call.Args,
		call.Result,
		call.Outcome,
		call.Error,
		call.Seq,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	return nil
}

// WriteExecution inserts an execution record.
// Returns the ID and whether a new record was inserted.
//
// Uses ON CONFLICT(call_id, seq) DO NOTHING for idempotency. If the
// execution was already recorded, returns the existing ID and
// inserted=false.
//
// Note: The call referenced by CallID must exist (foreign key constraint).
func (j *Journal) WriteExecution(ctx context.Context, exec Execution) (id int64, inserted bool, err error) {
	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write execution: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO executions
		(call_id, operation, receiver, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(call_id, seq) DO NOTHING
	`,
		exec.CallID,
		exec.Operation,
		exec.Receiver,
		exec.Seq,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write execution: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write execution: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		// New row inserted - get the auto-generated ID
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write execution: last insert id: %w", err)
		}
		inserted = true
	} else {
		// Conflict - row already exists, fetch the existing ID
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM executions
			WHERE call_id = ? AND seq = ?
		`, exec.CallID, exec.Seq).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("write execution: select existing: %w", err)
		}
		inserted = false
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write execution: commit: %w", err)
	}

	return id, inserted, nil
}
