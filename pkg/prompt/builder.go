package prompt

import (
	"fmt"
	"strings"
)

// Builder constructs the text prompts sent to the generation models.
// All methods are pure functions with no side effects.
// Zero value is ready to use.
type Builder struct{}

// EditParams defines inputs for reference-image and in-place edit prompts.
type EditParams struct {
	Instruction string
	Width       int
	Height      int
}

// VideoParams defines inputs for image-to-video prompts.
type VideoParams struct {
	Instruction string
	AspectRatio string
}

// BuildEditPrompt returns the user instruction followed by an instruction to
// keep the source dimensions. Dimensions are omitted when unknown.
func (b Builder) BuildEditPrompt(p EditParams) string {
	parts := []string{b.sentence(p.Instruction)}

	if ar := b.buildPreserveAspect(p.Width, p.Height); ar != "" {
		parts = append(parts, ar)
	}

	return strings.Join(nonEmpty(parts), " ")
}

// BuildVideoPrompt returns the user instruction with the target aspect ratio
// appended, for backends that take the ratio only as prose.
func (b Builder) BuildVideoPrompt(p VideoParams) string {
	parts := []string{b.sentence(p.Instruction)}

	if ar := strings.TrimSpace(p.AspectRatio); ar != "" {
		parts = append(parts, fmt.Sprintf("Generate the video in a %s aspect ratio.", ar))
	}

	return strings.Join(nonEmpty(parts), " ")
}

func (b Builder) buildPreserveAspect(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("Preserve the original aspect ratio of the image (%dx%d). Do not crop the image.", width, height)
}

// sentence trims the instruction and terminates it with a period.
func (b Builder) sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
