package errors_test

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFactoryMessages(t *testing.T) {
	f := errors.New()

	err := f.New(errors.ErrUnknownRobot)
	assert.Equal(t, "Unknown robot", err.Error())
	assert.Equal(t, errors.ErrUnknownRobot, err.Code())

	withData := f.WithData(errors.ErrUnknownRobot, "ROBOT_404")
	assert.Equal(t, "Unknown robot: ROBOT_404", withData.Error())

	cause := stderrors.New("disk full")
	wrapped := f.Wrap(errors.ErrWriteReport, cause)
	assert.Equal(t, "Failed to write incident report: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodeOf(t *testing.T) {
	f := errors.New()
	inner := f.New(errors.ErrSampleFailed)
	outer := fmt.Errorf("tick: %w", inner)

	assert.Equal(t, errors.ErrSampleFailed, errors.CodeOf(outer))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(stderrors.New("plain")))
	assert.True(t, errors.HasCode(f.Wrap(errors.ErrCheckFailed, inner), errors.ErrSampleFailed))
	assert.False(t, errors.HasCode(inner, errors.ErrWriteReport))
}

func TestIsMatchesBareCode(t *testing.T) {
	f := errors.New()
	sentinel := f.New(errors.ErrUnknownRobot)

	assert.ErrorIs(t, f.WithData(errors.ErrUnknownRobot, "ROBOT_404"), sentinel)
	assert.ErrorIs(t, fmt.Errorf("api: %w", f.New(errors.ErrUnknownRobot)), sentinel)
	assert.NotErrorIs(t, f.New(errors.ErrSampleFailed), sentinel)
}

func TestRecovered(t *testing.T) {
	err := errors.Recovered(errors.ErrCheckFailed, "sensor bus fault").WithData("ROBOT_002")
	assert.Equal(t, errors.ErrCheckFailed, err.Code())
	assert.Equal(t, "Robot check failed (ROBOT_002): panic: sensor bus fault", err.Error())

	cause := stderrors.New("nil map")
	assert.ErrorIs(t, errors.Recovered(errors.ErrCheckFailed, cause), cause)
}

func TestErrorConcurrentFormatting(t *testing.T) {
	err := errors.New().WithData(errors.ErrUnknownRobot, "ROBOT_404")

	var wg sync.WaitGroup
	out := make([]string, 8)
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = err.Error()
		}(i)
	}
	wg.Wait()

	for _, s := range out {
		assert.Equal(t, "Unknown robot: ROBOT_404", s)
	}
}
