package errs

import (
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := Wrap(KindDatabase, "insert result", io.ErrUnexpectedEOF)

	assert.True(t, Is(err, KindDatabase))
	assert.False(t, Is(err, KindParse))
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "database error: insert result")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(KindSchema, "create table", nil))
	assert.Nil(t, Wrapf(KindSchema, "create table", nil, "table %s", "status"))
}

func TestKindOfThroughFmtWrap(t *testing.T) {
	inner := New(KindSubprocess, "run speedtest", "exit status 1")
	outer := fmt.Errorf("measure: %w", inner)

	assert.Equal(t, KindSubprocess, KindOf(outer))
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.False(t, Is(nil, KindUnknown))
}

func TestFatal(t *testing.T) {
	cases := []struct {
		kind  Kind
		fatal bool
	}{
		{KindConfig, true},
		{KindSchema, true},
		{KindSubprocess, false},
		{KindParse, false},
		{KindDatabase, false},
	}
	for _, c := range cases {
		t.Run(c.kind.String(), func(t *testing.T) {
			assert.Equal(t, c.fatal, Fatal(New(c.kind, "op", "boom")))
		})
	}
	assert.False(t, Fatal(io.EOF))
}
