package db

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/testutil"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

func runComparison(t *testing.T, opts gait.Options) *gait.Result {
	t.Helper()
	p, err := gait.NewPipeline(opts, nil)
	require.NoError(t, err)
	res, err := p.Run(testutil.WalkingSequence(30, 0.08, 0.4), testutil.WalkingSequence(25, 0.07, 0.45))
	require.NoError(t, err)
	return res
}

func TestRecordFromResult(t *testing.T) {
	t.Parallel()

	opts := gait.DefaultOptions()
	res := runComparison(t, opts)

	rec, err := RecordFromResult("person1", "person2", res, opts)
	require.NoError(t, err)
	assert.Equal(t, "person1", rec.SubjectA)
	assert.Equal(t, res.Report.Overall, rec.Overall)
	assert.Equal(t, 25, rec.ComparedFrames)
	assert.Equal(t, 30, rec.LenA)
	assert.Equal(t, 25, rec.LenB)
	assert.Len(t, rec.Scores, gait.NumFeatures)

	var doc optionsDoc
	require.NoError(t, json.Unmarshal(rec.OptionsJSON, &doc))
	assert.Equal(t, 7, doc.MetadataLen)
	assert.Equal(t, 39, doc.JointOffsets["right_ankle"])
	assert.Equal(t, "abort", doc.OnMalformed)
	assert.Equal(t, []string{"step_length", "stance_width", "left_knee_angle", "right_knee_angle"}, doc.Features)

	_, err = RecordFromResult("a", "b", nil, opts)
	assert.Error(t, err)
}

func TestComparisonStore_InsertGet(t *testing.T) {
	t.Parallel()

	store := NewComparisonStore(setupTestDB(t))
	opts := gait.DefaultOptions()
	rec, err := RecordFromResult("person1", "person2", runComparison(t, opts), opts)
	require.NoError(t, err)

	require.NoError(t, store.Insert(rec))
	assert.NotEmpty(t, rec.ComparisonID)
	assert.NotZero(t, rec.CreatedAt)

	got, err := store.Get(rec.ComparisonID)
	require.NoError(t, err)
	assert.Equal(t, rec.ComparisonID, got.ComparisonID)
	assert.InDelta(t, rec.Overall, got.Overall, 1e-12)
	for name, v := range rec.Scores {
		assert.InDelta(t, v, got.Scores[name], 1e-12, name)
	}
	assert.JSONEq(t, string(rec.OptionsJSON), string(got.OptionsJSON))
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)

	_, err = store.Get("missing")
	assert.True(t, errors.Is(err, ErrComparisonNotFound))
}

func TestComparisonStore_FeatureSubsetLeavesNulls(t *testing.T) {
	t.Parallel()

	store := NewComparisonStore(setupTestDB(t))
	opts := gait.DefaultOptions()
	opts.Compare.Features = []gait.Feature{gait.LeftKneeAngle}
	rec, err := RecordFromResult("a", "b", runComparison(t, opts), opts)
	require.NoError(t, err)
	require.NoError(t, store.Insert(rec))

	got, err := store.Get(rec.ComparisonID)
	require.NoError(t, err)
	assert.Len(t, got.Scores, 1)
	_, ok := got.Scores["Left Knee Angle"]
	assert.True(t, ok)
}

func TestComparisonStore_ListAndDelete(t *testing.T) {
	t.Parallel()

	store := NewComparisonStore(setupTestDB(t))
	for i, pair := range [][2]string{{"ref", "c1"}, {"ref", "c2"}, {"c3", "c4"}} {
		rec := &ComparisonRecord{
			SubjectA:  pair[0],
			SubjectB:  pair[1],
			Overall:   float64(50 + i),
			Scores:    map[string]float64{"Step Length": float64(50 + i)},
			CreatedAt: int64(1000 + i),
		}
		require.NoError(t, store.Insert(rec))
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c3", all[0].SubjectA, "newest first")

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	ref, err := store.ListBySubject("ref")
	require.NoError(t, err)
	assert.Len(t, ref, 2)

	require.NoError(t, store.Delete(all[0].ComparisonID))
	assert.True(t, errors.Is(store.Delete(all[0].ComparisonID), ErrComparisonNotFound))

	all, err = store.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestComparisonStore_ClockStampsCreatedAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	store := NewComparisonStoreWithClock(setupTestDB(t), clock)

	first := &ComparisonRecord{SubjectA: "ref", SubjectB: "early", Overall: 80}
	require.NoError(t, store.Insert(first))
	assert.Equal(t, start.UnixNano(), first.CreatedAt)

	clock.Advance(time.Minute)
	second := &ComparisonRecord{SubjectA: "ref", SubjectB: "late", Overall: 60}
	require.NoError(t, store.Insert(second))

	recs, err := store.ListBySubject("ref")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "late", recs[0].SubjectB)
	assert.Equal(t, start.Add(time.Minute).UnixNano(), recs[0].CreatedAt)
}
