package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "open database"))

	err := WrapError(ErrNotFound, "open cache")
	require.Error(t, err)
	assert.Equal(t, "open cache: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"unsupported", NewAppError(CodeUnsupportedType, "notes.docx", ErrUnsupportedFileType), codes.InvalidArgument},
		{"not found", WrapError(ErrNotFound, "read"), codes.NotFound},
		{"other", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}
