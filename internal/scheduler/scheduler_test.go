package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(context.Context) []string {
	c.calls.Add(1)
	return []string{"ROOM01"}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunNow(t *testing.T) {
	sw := &countingSweeper{}
	New(quietLogger(), "@every 10m", sw).RunNow()
	assert.EqualValues(t, 1, sw.calls.Load())
}

func TestStartRunsOnSchedule(t *testing.T) {
	sw := &countingSweeper{}
	s := New(quietLogger(), "@every 1s", sw)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(quietLogger(), "every now and then", &countingSweeper{})
	assert.Error(t, s.Start())
}
