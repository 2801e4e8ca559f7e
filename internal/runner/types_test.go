package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterFunc(t *testing.T) {
	var got []Report
	r := ReporterFunc(func(ctx context.Context, item Item, rep Report) {
		assert.Equal(t, "pkg::TestA", item.ID)
		got = append(got, rep)
	})

	r.Report(context.Background(), Item{ID: "pkg::TestA"}, Report{Phase: PhaseCall, Outcome: OutcomePassed})
	assert.Len(t, got, 1)
	assert.Equal(t, PhaseCall, got[0].Phase)
}

func TestSummaryTotal(t *testing.T) {
	assert.Equal(t, 6, Summary{Passed: 3, Failed: 2, Skipped: 1}.Total())
	assert.Zero(t, Summary{}.Total())
}
