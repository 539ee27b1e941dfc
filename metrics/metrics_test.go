package metrics

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/maimai/spacetarot"
)

func TestObservePipeline(t *testing.T) {
	doneBefore := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("done"))
	failedBefore := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failed"))
	imagingBefore := testutil.ToFloat64(StageFailuresTotal.WithLabelValues("imaging", "timeout"))

	ObservePipeline(tarot.StageDescribing, nil)
	ObservePipeline(tarot.StageDone, nil)
	ObservePipeline(tarot.StageFailed, &tarot.GenerationError{
		Stage: tarot.StageImaging,
		Kind:  tarot.KindTimeout,
		Err:   errors.New("deadline"),
	})

	assert.Equal(t, doneBefore+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("done")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failed")))
	assert.Equal(t, imagingBefore+1, testutil.ToFloat64(StageFailuresTotal.WithLabelValues("imaging", "timeout")))
}

func TestObservePipeline_Canceled(t *testing.T) {
	canceledBefore := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("canceled"))
	failedBefore := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failed"))
	stageBefore := testutil.ToFloat64(StageFailuresTotal.WithLabelValues("reading", "canceled"))

	ObservePipeline(tarot.StageFailed, &tarot.GenerationError{
		Stage: tarot.StageReading,
		Kind:  tarot.KindCanceled,
		Err:   errors.New("context canceled"),
	})

	assert.Equal(t, canceledBefore+1, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("canceled")))
	assert.Equal(t, failedBefore, testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("failed")))
	assert.Equal(t, stageBefore, testutil.ToFloat64(StageFailuresTotal.WithLabelValues("reading", "canceled")))
}

func TestRegister_Twice(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}
