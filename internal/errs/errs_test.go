package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
		{"classified", New(KindRateLimited, "op", errors.New("429")), KindRateLimited},
		{"wrapped classified", fmt.Errorf("outer: %w", New(KindAuthRejected, "op", errors.New("401"))), KindAuthRejected},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(KindUnavailable, "search.Search", errors.New("status 502"))
	assert.Equal(t, "search.Search: status 502", err.Error())

	bare := &Error{Kind: KindConfigMissing, Op: "tts.Synthesize"}
	assert.Equal(t, "tts.Synthesize: config_missing", bare.Error())
}

func TestNewfWrapsFormattedCause(t *testing.T) {
	err := Newf(KindValidation, "op", "bad input %q", "x")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), `bad input "x"`)
}
