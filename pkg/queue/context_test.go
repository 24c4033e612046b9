package queue_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/queue"
	"github.com/churchly/backend/pkg/tenant"
)

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := queue.LoggerExtractor()
	_, ok := extract(context.Background())
	assert.False(t, ok)

	var attr slog.Attr
	handler := queue.NewTaskHandler(func(ctx context.Context, _ reportPayload) error {
		attr, ok = extract(ctx)
		return nil
	})
	_, enq, worker := setup(t, tenant.NewMemoryProvider(), handler)
	require.NoError(t, enq.Enqueue(context.Background(), reportPayload{}))
	_, err := worker.ProcessNext(context.Background())
	require.NoError(t, err)

	require.True(t, ok)
	assert.Equal(t, "task", attr.Key)
	group := attr.Value.Group()
	require.Len(t, group, 2)
	assert.Equal(t, "id", group[0].Key)
	assert.Equal(t, "name", group[1].Key)
	assert.Equal(t, "queue_test.reportPayload", group[1].Value.String())
}
