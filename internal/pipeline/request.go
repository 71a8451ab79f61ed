package pipeline

import (
	"strings"
	"unicode/utf8"

	"thirdcoast.systems/gifmoments/internal/media"
)

// MaxPromptRunes bounds the user prompt.
const MaxPromptRunes = 500

// Request starts one run.
type Request struct {
	Reference media.Reference
	Prompt    string
	// OwnsUpload hands the uploaded file to the run, which removes it on exit.
	OwnsUpload bool
}

// Validate checks that exactly one source and a prompt are present.
func (r Request) Validate() error {
	ref := r.Reference
	hasFile, hasURL := ref.Path != "", ref.URL != ""
	switch {
	case hasFile && hasURL:
		return &InputError{Field: "source", Message: "provide either a video file or a YouTube URL, not both"}
	case ref.Kind == media.KindUpload && !hasFile,
		ref.Kind == media.KindRemote && !hasURL,
		ref.Kind != media.KindUpload && ref.Kind != media.KindRemote:
		return &InputError{Field: "source", Message: "provide a video file or a YouTube URL"}
	}

	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return &InputError{Field: "prompt", Message: "a prompt describing the moments you want is required"}
	}
	if utf8.RuneCountInString(prompt) > MaxPromptRunes {
		return &InputError{Field: "prompt", Message: "the prompt must be at most 500 characters"}
	}
	return nil
}
