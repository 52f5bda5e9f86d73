package importer

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Snapshot(t *testing.T) {
	r := NewResult(10)
	r.AddInfo("equal picture", 1, "Picture1")
	r.AddWarning("bad price", 2, "Price")
	r.AddError("name required", 3, "Name")
	r.AddSegmentError(errors.New("deadlock"), 2, StageSlugs)
	r.addCounts(4, 3, 3)

	s := r.Snapshot(false)
	assert.Equal(t, 10, s.TotalRecords)
	assert.Equal(t, 4, s.NewRecords)
	assert.Equal(t, 3, s.ModifiedRecords)
	assert.Equal(t, 3, s.FailedRecords)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 2, s.Errors)
	assert.Nil(t, s.CompletedAt)
	assert.Empty(t, s.Messages)
	assert.True(t, r.HasErrors())

	r.finish(true)
	s = r.Snapshot(true)
	require.NotNil(t, s.CompletedAt)
	assert.True(t, s.Aborted)
	require.Len(t, s.Messages, 4)
	assert.Equal(t, Message{Severity: SeverityError, Text: "slugs stage failed: deadlock", Segment: 2, Stage: StageSlugs}, s.Messages[3])
}

func TestResult_MessageJSON(t *testing.T) {
	r := NewResult(1)
	r.AddWarning("bad price", 2, "Price")

	data, err := json.Marshal(r.Messages()[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"warning","message":"bad price","row":2,"field":"Price"}`, string(data))
}

func TestResult_ConcurrentWrites(t *testing.T) {
	r := NewResult(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.AddWarning("w", j, "Price")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Messages(), 100)
	assert.False(t, r.HasErrors())
}
