package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Language
		wantErr bool
	}{
		{"python", domain.LanguagePython, false},
		{" PY ", domain.LanguagePython, false},
		{"JavaScript", domain.LanguageJavaScript, false},
		{"node", domain.LanguageJavaScript, false},
		{"c", domain.LanguageC, false},
		{"cobol", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseLanguage(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestLanguageFromPath(t *testing.T) {
	lang, err := domain.LanguageFromPath("examples/factorial.py")
	assert.NoError(t, err)
	assert.Equal(t, domain.LanguagePython, lang)

	lang, err = domain.LanguageFromPath("main.MJS")
	assert.NoError(t, err)
	assert.Equal(t, domain.LanguageJavaScript, lang)

	_, err = domain.LanguageFromPath("README")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnTransition: func(_ context.Context, _ *domain.TransitionEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnTransition: func(_ context.Context, _ *domain.TransitionEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnTransition(context.Background(), &domain.TransitionEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnExecuteDone)
}
