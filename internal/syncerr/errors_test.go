package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "network", err: fmt.Errorf("download: %w", ErrNetwork), want: KindNetwork},
		{name: "auth", err: fmt.Errorf("upload: %w", ErrAuth), want: KindAuth},
		{name: "auth and network", err: errors.Join(ErrNetwork, ErrAuth), want: KindAuth},
		{name: "store", err: fmt.Errorf("merge words: %w", ErrStoreTransaction), want: KindStore},
		{name: "policy", err: fmt.Errorf("record: %w", ErrPolicyViolation), want: KindPolicyViolation},
		{name: "other", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
