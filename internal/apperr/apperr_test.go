package apperr_test

import (
	"errors"
	"testing"

	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"parse", apperr.New(apperr.KindParse, "op", errors.New("bad")), 400},
		{"unsupported header", apperr.New(apperr.KindUnsupportedHeader, "op", errors.New("x")), 501},
		{"unsupported encoding", apperr.New(apperr.KindUnsupportedEncoding, "op", errors.New("x")), 415},
		{"missing length", apperr.New(apperr.KindMissingLength, "op", errors.New("x")), 411},
		{"not found", apperr.New(apperr.KindNotFound, "op", errors.New("x")), 404},
		{"conflict", apperr.New(apperr.KindConflict, "op", errors.New("x")), 404},
		{"validation", apperr.New(apperr.KindValidation, "op", errors.New("x")), 400},
		{"backend", apperr.New(apperr.KindBackend, "op", errors.New("x")), 500},
		{"fatal", apperr.New(apperr.KindFatal, "op", errors.New("x")), 500},
		{"unclassified", errors.New("plain"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.StatusOf(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	wrapped := apperr.New(apperr.KindConflict, "store put", apperr.ErrAlreadyMapped)
	require.ErrorIs(t, wrapped, apperr.ErrAlreadyMapped)
	assert.Equal(t, "store put: web resource already mapped", wrapped.Error())
}

func TestNewfFormatsMessage(t *testing.T) {
	err := apperr.Newf(apperr.KindParse, "httpcodec", "bad value %q", "x")
	assert.Contains(t, err.Error(), `bad value "x"`)
}

func TestKindOfDefaultsToBackend(t *testing.T) {
	assert.Equal(t, apperr.KindBackend, apperr.KindOf(errors.New("not ours")))
}
