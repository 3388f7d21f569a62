package prompt

import (
	"context"
	"strings"

	"imagenbot/internal/logger"
)

const styleDelimiter = ", "

// Transformer normalizes raw prompts before they reach the generation
// provider: canonical-language translation plus an optional style suffix.
type Transformer struct {
	translator Translator
	targetLang string
}

func NewTransformer(tr Translator, targetLang string) *Transformer {
	if targetLang == "" {
		targetLang = "en"
	}
	return &Transformer{translator: tr, targetLang: targetLang}
}

// Transform returns the canonical prompt. Translation failure falls back
// to the original text; the suffix is plain concatenation either way.
func (t *Transformer) Transform(ctx context.Context, raw, styleSuffix string) string {
	out := strings.TrimSpace(raw)

	if t.translator != nil {
		translated, err := t.translator.Translate(ctx, out, t.targetLang)
		if err != nil {
			logger.Warn().Err(err).Msg("translation failed, using original prompt")
		} else if strings.TrimSpace(translated) != "" {
			out = strings.TrimSpace(translated)
		}
	}

	if styleSuffix != "" {
		out = out + styleDelimiter + styleSuffix
	}
	return out
}
