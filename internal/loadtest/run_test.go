package loadtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResult_OpsPerSecond(t *testing.T) {
	r := Result{Ops: 5000, Elapsed: 2 * time.Second}
	assert.Equal(t, int64(2500), r.OpsPerSecond())

	assert.Equal(t, int64(0), Result{Ops: 100}.OpsPerSecond())
}
