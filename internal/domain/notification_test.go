package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmatch/backend/internal/domain"
)

func TestMultiNotifier(t *testing.T) {
	first, second := newRecordingNotifier(), newRecordingNotifier()
	multi := domain.MultiNotifier{first, nil, second}
	userID := uuid.New()

	require.NoError(t, multi.Notify(context.Background(), userID, domain.Event{Type: domain.EventRequestReceived}))
	assert.Len(t, first.For(userID), 1)
	assert.Len(t, second.For(userID), 1)

	second.err = errors.New("down")
	err := multi.Notify(context.Background(), userID, domain.Event{Type: domain.EventRequestAccepted})
	assert.EqualError(t, err, "down")
	assert.Len(t, first.For(userID), 2)
}

func TestPairKeyIsSymmetric(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, domain.PairKey(a, b), domain.PairKey(b, a))
	assert.NotEqual(t, domain.PairKey(a, b), domain.PairKey(a, uuid.New()))
}
