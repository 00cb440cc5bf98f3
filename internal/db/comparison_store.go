package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

// ErrComparisonNotFound is returned by Get for an unknown comparison ID.
var ErrComparisonNotFound = errors.New("comparison not found")

// ComparisonRecord is one persisted gait comparison. Scores is keyed by feature
// display name and holds only the features that were compared.
type ComparisonRecord struct {
	ComparisonID   string             `json:"comparison_id"`
	SubjectA       string             `json:"subject_a"`
	SubjectB       string             `json:"subject_b"`
	Overall        float64            `json:"overall"`
	Scores         map[string]float64 `json:"scores"`
	ComparedFrames int                `json:"compared_frames"`
	LenA           int                `json:"len_a"`
	LenB           int                `json:"len_b"`
	DroppedA       int                `json:"dropped_a"`
	DroppedB       int                `json:"dropped_b"`
	MalformedA     int                `json:"malformed_a"`
	MalformedB     int                `json:"malformed_b"`
	OptionsJSON    json.RawMessage    `json:"options_json,omitempty"`
	CreatedAt      int64              `json:"created_at"`
}

// optionsDoc is the stored form of gait.Options.
type optionsDoc struct {
	MetadataLen   int            `json:"metadata_len"`
	JointOffsets  map[string]int `json:"joint_offsets"`
	OnMalformed   string         `json:"on_malformed"`
	OnDegenerate  string         `json:"on_degenerate"`
	Normalization string         `json:"normalization"`
	Features      []string       `json:"features"`
}

// RecordFromResult builds a record for a finished pipeline run.
func RecordFromResult(subjectA, subjectB string, res *gait.Result, opts gait.Options) (*ComparisonRecord, error) {
	if res == nil || res.Report == nil {
		return nil, fmt.Errorf("nil comparison result")
	}

	doc := optionsDoc{
		MetadataLen:   opts.Schema.MetadataLen,
		JointOffsets:  make(map[string]int, len(opts.Schema.Offsets)),
		OnMalformed:   string(opts.OnMalformed),
		OnDegenerate:  string(opts.OnDegenerate),
		Normalization: string(opts.Compare.Normalization),
	}
	for j, off := range opts.Schema.Offsets {
		doc.JointOffsets[j.String()] = off
	}
	for _, f := range res.Report.Ordered() {
		doc.Features = append(doc.Features, f.Key())
	}
	optsJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	scores := make(map[string]float64, len(res.Report.Features))
	for k, v := range res.Report.Features {
		scores[k] = v
	}

	return &ComparisonRecord{
		SubjectA:       subjectA,
		SubjectB:       subjectB,
		Overall:        res.Report.Overall,
		Scores:         scores,
		ComparedFrames: res.Report.Compared,
		LenA:           res.Report.LenA,
		LenB:           res.Report.LenB,
		DroppedA:       res.A.Features.Dropped,
		DroppedB:       res.B.Features.Dropped,
		MalformedA:     res.A.Extract.Malformed,
		MalformedB:     res.B.Extract.Malformed,
		OptionsJSON:    optsJSON,
	}, nil
}

// ComparisonStore provides persistence for gait comparison results.
type ComparisonStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewComparisonStore creates a new ComparisonStore stamped by the wall clock.
func NewComparisonStore(db *DB) *ComparisonStore {
	return NewComparisonStoreWithClock(db, timeutil.RealClock{})
}

// NewComparisonStoreWithClock creates a ComparisonStore that takes CreatedAt
// timestamps and busy-retry sleeps from clock.
func NewComparisonStoreWithClock(db *DB, clock timeutil.Clock) *ComparisonStore {
	return &ComparisonStore{db: db.DB, clock: clock}
}

// Insert persists a comparison. If ComparisonID is empty, a UUID is generated.
func (s *ComparisonStore) Insert(rec *ComparisonRecord) error {
	if rec.ComparisonID == "" {
		rec.ComparisonID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.clock.Now().UnixNano()
	}

	var optsStr interface{}
	if len(rec.OptionsJSON) > 0 {
		optsStr = string(rec.OptionsJSON)
	}

	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(`
			INSERT INTO gait_comparisons (
				comparison_id, subject_a, subject_b, overall,
				step_length, stance_width, left_knee_angle, right_knee_angle,
				compared_frames, len_a, len_b,
				dropped_a, dropped_b, malformed_a, malformed_b,
				options_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ComparisonID, rec.SubjectA, rec.SubjectB, rec.Overall,
			scoreArg(rec.Scores, gait.StepLength), scoreArg(rec.Scores, gait.StanceWidth),
			scoreArg(rec.Scores, gait.LeftKneeAngle), scoreArg(rec.Scores, gait.RightKneeAngle),
			rec.ComparedFrames, rec.LenA, rec.LenB,
			rec.DroppedA, rec.DroppedB, rec.MalformedA, rec.MalformedB,
			optsStr, rec.CreatedAt,
		)
		return err
	})
}

const selectComparison = `
	SELECT comparison_id, subject_a, subject_b, overall,
	       step_length, stance_width, left_knee_angle, right_knee_angle,
	       compared_frames, len_a, len_b,
	       dropped_a, dropped_b, malformed_a, malformed_b,
	       options_json, created_at
	FROM gait_comparisons`

// Get returns a single comparison by ID.
func (s *ComparisonStore) Get(id string) (*ComparisonRecord, error) {
	row := s.db.QueryRow(selectComparison+` WHERE comparison_id = ?`, id)
	rec, err := scanComparison(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrComparisonNotFound, id)
		}
		return nil, fmt.Errorf("scan comparison: %w", err)
	}
	return rec, nil
}

// List returns the most recent comparisons, newest first. A limit <= 0 returns all.
func (s *ComparisonStore) List(limit int) ([]*ComparisonRecord, error) {
	query := selectComparison + ` ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(query, args...)
}

// ListBySubject returns comparisons in which subject appears on either side, newest first.
func (s *ComparisonStore) ListBySubject(subject string) ([]*ComparisonRecord, error) {
	return s.query(selectComparison+`
		WHERE subject_a = ? OR subject_b = ?
		ORDER BY created_at DESC`, subject, subject)
}

// Delete removes a comparison by ID.
func (s *ComparisonStore) Delete(id string) error {
	return retryOnBusy(s.clock, func() error {
		result, err := s.db.Exec(`DELETE FROM gait_comparisons WHERE comparison_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete comparison: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrComparisonNotFound, id)
		}
		return nil
	})
}

func (s *ComparisonStore) query(query string, args ...interface{}) ([]*ComparisonRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var recs []*ComparisonRecord
	for rows.Next() {
		rec, err := scanComparison(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comparison row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComparison(row scanner) (*ComparisonRecord, error) {
	var rec ComparisonRecord
	var scores [gait.NumFeatures]sql.NullFloat64
	var optsStr sql.NullString
	err := row.Scan(
		&rec.ComparisonID, &rec.SubjectA, &rec.SubjectB, &rec.Overall,
		&scores[gait.StepLength], &scores[gait.StanceWidth],
		&scores[gait.LeftKneeAngle], &scores[gait.RightKneeAngle],
		&rec.ComparedFrames, &rec.LenA, &rec.LenB,
		&rec.DroppedA, &rec.DroppedB, &rec.MalformedA, &rec.MalformedB,
		&optsStr, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Scores = make(map[string]float64, gait.NumFeatures)
	for _, f := range gait.AllFeatures() {
		if scores[f].Valid {
			rec.Scores[f.Name()] = scores[f].Float64
		}
	}
	if optsStr.Valid {
		rec.OptionsJSON = json.RawMessage(optsStr.String)
	}
	return &rec, nil
}

func scoreArg(scores map[string]float64, f gait.Feature) interface{} {
	if v, ok := scores[f.Name()]; ok {
		return v
	}
	return nil
}
