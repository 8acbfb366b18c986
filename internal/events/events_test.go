// AngelaMos | 2026
// events_test.go

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestNew(t *testing.T) {
	a := New(VehicleCreated, "7", nil)
	b := New(VehicleCreated, "7", nil)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, VehicleCreated, a.Type)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestEmit_SwallowsErrors(t *testing.T) {
	p := &failingPublisher{}

	assert.NotPanics(t, func() {
		Emit(context.Background(), p, New(UserActivated, "1", nil))
		Emit(context.Background(), nil, New(UserActivated, "1", nil))
		Emit(context.Background(), NopPublisher{}, New(UserActivated, "1", nil))
	})
	assert.Equal(t, 1, p.calls)
}
