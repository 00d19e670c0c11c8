package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"em-picker/internal/picking"
)

// SessionInfo summarizes a saved session.
type SessionInfo struct {
	ID          string
	Name        string
	BoxSize     int
	Micrographs int
	Coordinates int
	CreatedAt   time.Time
}

// SaveModel stores a snapshot of model under a new session id.
func (s *Store) SaveModel(ctx context.Context, name string, model *picking.PickerDataModel) (string, error) {
	id := uuid.NewString()
	boxSize, _ := model.BoxSize()

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions(id, name, box_size, created_at) VALUES (?, ?, ?, ?)`,
			id, name, boxSize, time.Now().UTC().Truncate(time.Second)); err != nil {
			return err
		}

		for _, l := range model.Labels() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO labels(session_id, name, color) VALUES (?, ?, ?)`,
				id, l.Name, l.Color); err != nil {
				return err
			}
		}

		for pos, mic := range model.Micrographs() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO micrographs(session_id, id, path, position) VALUES (?, ?, ?, ?)`,
				id, mic.ID(), mic.Path(), pos); err != nil {
				return err
			}
			if err := insertEntries(ctx, tx, id, mic); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, sessionID string, mic *picking.Micrograph) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO coordinates(session_id, micrograph_id, seq, x1, y1, x2, y2, label)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq, e := range mic.Entries() {
		var x1, y1 float64
		var x2, y2 sql.NullFloat64
		switch v := e.(type) {
		case *picking.Coordinate:
			x1, y1 = v.X, v.Y
		case *picking.Filament:
			x1, y1 = v.Start.X, v.Start.Y
			x2 = sql.NullFloat64{Float64: v.End.X, Valid: true}
			y2 = sql.NullFloat64{Float64: v.End.Y, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, sessionID, mic.ID(), seq, x1, y1, x2, y2, e.Label()); err != nil {
			return err
		}
	}
	return nil
}

// LoadModel rebuilds the model saved under id.
func (s *Store) LoadModel(ctx context.Context, id string) (*picking.PickerDataModel, error) {
	var boxSize int
	err := s.db.QueryRowContext(ctx, `SELECT box_size FROM sessions WHERE id = ?`, id).Scan(&boxSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	model := picking.NewPickerDataModel()
	if boxSize > 0 {
		model.SetBoxSize(boxSize)
	}

	labels, err := s.db.QueryContext(ctx, `SELECT name, color FROM labels WHERE session_id = ?`, id)
	if err != nil {
		return nil, err
	}
	for labels.Next() {
		var l picking.Label
		if err := labels.Scan(&l.Name, &l.Color); err != nil {
			labels.Close()
			return nil, err
		}
		model.AddLabel(l)
	}
	labels.Close()
	if err := labels.Err(); err != nil {
		return nil, err
	}

	mics, err := s.loadMicrographs(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, mic := range mics {
		if err := model.RegisterMicrograph(mic); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func (s *Store) loadMicrographs(ctx context.Context, sessionID string) ([]*picking.Micrograph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path FROM micrographs WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	var mics []*picking.Micrograph
	for rows.Next() {
		var micID int
		var path string
		if err := rows.Scan(&micID, &path); err != nil {
			rows.Close()
			return nil, err
		}
		mics = append(mics, picking.NewMicrograph(micID, path))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, mic := range mics {
		specs, err := s.loadSpecs(ctx, sessionID, mic.ID())
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			mic.AddCoordinate(spec.Entry())
		}
	}
	return mics, nil
}

func (s *Store) loadSpecs(ctx context.Context, sessionID string, micID int) ([]picking.CoordinateSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT x1, y1, x2, y2, label FROM coordinates
	WHERE session_id = ? AND micrograph_id = ? ORDER BY seq`, sessionID, micID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []picking.CoordinateSpec
	for rows.Next() {
		var x1, y1 float64
		var x2, y2 sql.NullFloat64
		var label string
		if err := rows.Scan(&x1, &y1, &x2, &y2, &label); err != nil {
			return nil, err
		}
		if x2.Valid && y2.Valid {
			out = append(out, picking.Pair{X1: x1, Y1: y1, X2: x2.Float64, Y2: y2.Float64, Label: label})
		} else {
			out = append(out, picking.Single{X: x1, Y: y1, Label: label})
		}
	}
	return out, rows.Err()
}

// ListSessions returns saved sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT s.id, s.name, s.box_size, s.created_at,
	       (SELECT COUNT(*) FROM micrographs m WHERE m.session_id = s.id),
	       (SELECT COUNT(*) FROM coordinates c WHERE c.session_id = s.id)
	FROM sessions s
	ORDER BY s.created_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var si SessionInfo
		if err := rows.Scan(&si.ID, &si.Name, &si.BoxSize, &si.CreatedAt, &si.Micrographs, &si.Coordinates); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

// DeleteSession removes a saved session and everything under it.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
