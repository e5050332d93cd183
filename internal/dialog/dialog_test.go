package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct{ ID, Name string }

func TestOpenAndClose(t *testing.T) {
	var c Controller[customer]
	s, row := c.State()
	assert.Equal(t, None, s)
	assert.Nil(t, row)

	require.NoError(t, c.Open(Create, nil))
	assert.True(t, c.IsOpen(Create))

	ann := &customer{ID: "c1", Name: "Ann"}
	require.NoError(t, c.Open(Update, ann))
	assert.False(t, c.IsOpen(Create))
	s, row = c.State()
	assert.Equal(t, Update, s)
	assert.Same(t, ann, row)

	c.Close()
	s, row = c.State()
	assert.Equal(t, None, s)
	assert.Nil(t, row)
	assert.False(t, c.IsOpen(None))
}

func TestOpenValidation(t *testing.T) {
	var c Controller[customer]
	for _, s := range []State{Update, Delete, View} {
		assert.Error(t, c.Open(s, nil), s.String())
	}
	assert.EqualError(t, c.Open("archive", &customer{}), `unknown dialog "archive"`)

	require.NoError(t, c.Open(View, &customer{ID: "c1"}))
	require.NoError(t, c.Open(None, nil))
	s, row := c.State()
	assert.Equal(t, None, s)
	assert.Nil(t, row)
	assert.Equal(t, "none", None.String())
}

func TestSubmitClosesOnSuccess(t *testing.T) {
	var c Controller[customer]
	ann := &customer{ID: "c1"}
	require.NoError(t, c.Open(Delete, ann))

	var gotState State
	var gotRow *customer
	err := c.Submit(context.Background(), func(_ context.Context, s State, row *customer) error {
		gotState, gotRow = s, row
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Delete, gotState)
	assert.Same(t, ann, gotRow)
	s, _ := c.State()
	assert.Equal(t, None, s)
}

func TestSubmitKeepsDialogOnFailure(t *testing.T) {
	var c Controller[customer]
	ann := &customer{ID: "c1"}
	require.NoError(t, c.Open(Update, ann))

	boom := errors.New("Customer has transactions")
	err := c.Submit(context.Background(), func(context.Context, State, *customer) error { return boom })
	require.ErrorIs(t, err, boom)
	s, row := c.State()
	assert.Equal(t, Update, s)
	assert.Same(t, ann, row)
}

func TestSubmitWithNothingOpen(t *testing.T) {
	var c Controller[customer]
	called := false
	err := c.Submit(context.Background(), func(context.Context, State, *customer) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNothingOpen)
	assert.False(t, called)
}

func TestSubmitLeavesDialogOpenedMeanwhile(t *testing.T) {
	var c Controller[customer]
	require.NoError(t, c.Open(Create, nil))
	bob := &customer{ID: "c2"}

	err := c.Submit(context.Background(), func(context.Context, State, *customer) error {
		return c.Open(View, bob)
	})
	require.NoError(t, err)
	s, row := c.State()
	assert.Equal(t, View, s)
	assert.Same(t, bob, row)
}
