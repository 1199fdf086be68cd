package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/seed"
)

func TestRunnerSequential(t *testing.T) {
	var order []string
	record := func(name string) seed.Seeder {
		return seed.Func(name, func(context.Context, adapter.Adapter) error {
			order = append(order, name)
			return nil
		})
	}

	r := seed.NewRunner(nil)
	require.NoError(t, r.Run(context.Background(), record("users"), record("posts")))
	assert.Equal(t, []string{"users", "posts"}, order)
}

func TestRunnerStopsOnError(t *testing.T) {
	var ran []string
	r := seed.NewRunner(nil)
	err := r.Run(context.Background(),
		seed.Func("ok", func(context.Context, adapter.Adapter) error {
			ran = append(ran, "ok")
			return nil
		}),
		seed.Func("broken", func(context.Context, adapter.Adapter) error {
			return assert.AnError
		}),
		seed.Func("never", func(context.Context, adapter.Adapter) error {
			ran = append(ran, "never")
			return nil
		}),
	)
	require.Error(t, err)
	assert.True(t, quarry.IsMutationError(err))
	assert.Equal(t, []string{"ok"}, ran)
}
