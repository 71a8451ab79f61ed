package acquire

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/pkg/ytdlp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonUnknown},
		{"bot", errors.New("ERROR: Sign in to confirm you're not a bot"), ReasonBotDetection},
		{"rate limited", errors.New("HTTP Error 429: Too Many Requests"), ReasonBotDetection},
		{"private", errors.New("ERROR: Private video. Sign in if you've been granted access"), ReasonUnavailable},
		{"age", errors.New("Sign in to confirm your age"), ReasonUnavailable},
		{"removed", errors.New("Video unavailable. This video has been removed by the uploader"), ReasonUnavailable},
		{"not found", fmt.Errorf("lookup: %w", ErrVideoNotFound), ReasonUnavailable},
		{"deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), ReasonTimeout},
		{"other", errors.New("exit status 2"), ReasonUnknown},
		{
			"stderr only",
			&ytdlp.ExecError{Cmd: "yt-dlp", Stderr: "WARNING: x\nERROR: [youtube] abc: Join this channel to get access to members-only content\nmore"},
			ReasonUnavailable,
		},
		{
			"tool stderr",
			&ToolError{Tool: "gallery-dl", Stderr: "captcha required", Err: errors.New("exit status 1")},
			ReasonBotDetection,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestNewAcquisitionError_PicksMostInformativeReason(t *testing.T) {
	aerr := NewAcquisitionError("u", "", []AttemptFailure{
		{Strategy: "a", Err: context.DeadlineExceeded},
		{Strategy: "b", Err: errors.New("not a bot")},
		{Strategy: "c", Err: errors.New("exit 1")},
	})
	assert.Equal(t, ReasonBotDetection, aerr.Reason)
	assert.Equal(t, guidanceByReason[ReasonBotDetection].message, aerr.Message)
	assert.Contains(t, aerr.Error(), "after 3 attempts")
	assert.ErrorIs(t, aerr, context.DeadlineExceeded)
}

func TestEveryReasonHasGuidance(t *testing.T) {
	for _, r := range []Reason{ReasonBotDetection, ReasonUnavailable, ReasonTimeout, ReasonUnknown} {
		g, ok := guidanceByReason[r]
		require.True(t, ok, r)
		assert.NotEmpty(t, g.message)
		assert.NotEmpty(t, g.suggestions)
	}
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]float64{
		"PT15S":    15,
		"PT1M":     60,
		"PT1H2M3S": 3723,
		"P1DT1S":   86401,
		"PT2.5S":   2.5,
		"PT10M0S":  600,
		"P0D":      0,
	}
	for in, want := range tests {
		got, err := ParseISODuration(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	for _, bad := range []string{"", "P", "PT", "15S", "PT1X"} {
		_, err := ParseISODuration(bad)
		assert.Error(t, err, bad)
	}
}
