package bot

import (
	"context"
	"fmt"

	"imagenbot/internal/state"
)

// StyleOption is a fixed menu entry. The suffix is appended verbatim to
// the translated prompt.
type StyleOption struct {
	Key    string
	Label  string
	Suffix string
}

var styleOptions = []StyleOption{
	{Key: "none", Label: "No style", Suffix: ""},
	{Key: "realistic", Label: "Realistic", Suffix: "photorealistic, highly detailed"},
	{Key: "anime", Label: "Anime", Suffix: "anime style"},
	{Key: "watercolor", Label: "Watercolor", Suffix: "watercolor painting"},
	{Key: "cyberpunk", Label: "Cyberpunk", Suffix: "cyberpunk, neon lights"},
	{Key: "pixel", Label: "Pixel art", Suffix: "pixel art"},
}

func styleByKey(key string) (StyleOption, bool) {
	for _, o := range styleOptions {
		if o.Key == key {
			return o, true
		}
	}
	return StyleOption{}, false
}

// StyleSelections remembers each user's chosen style between prompts.
type StyleSelections struct {
	kv state.KeyedStore
}

func NewStyleSelections(kv state.KeyedStore) *StyleSelections {
	return &StyleSelections{kv: kv}
}

func styleKey(userID int64) string {
	return fmt.Sprintf("style:%d", userID)
}

func (s *StyleSelections) Set(ctx context.Context, userID int64, key string) error {
	if key == "none" {
		return s.kv.Delete(ctx, styleKey(userID))
	}
	return s.kv.Set(ctx, styleKey(userID), key)
}

// Get returns the selected option; ok is false when nothing is set.
func (s *StyleSelections) Get(ctx context.Context, userID int64) (StyleOption, bool) {
	v, err := s.kv.Get(ctx, styleKey(userID))
	if err != nil {
		return StyleOption{}, false
	}
	opt, ok := styleByKey(v)
	return opt, ok
}
