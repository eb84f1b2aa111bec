package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIcon(t *testing.T) {
	assert.Equal(t, "🐦", Icon("bird"))
	assert.Equal(t, "👤", Icon("person"))
	assert.Equal(t, FallbackIcon, Icon("crane"))
}

func TestNormalizeObjects(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"vocabulary order", []string{"bird", "person", "car"}, []string{"person", "car", "bird"}},
		{"duplicates and case", []string{"Dog", "dog", " DOG "}, []string{"dog"}},
		{"plurals", []string{"birds", "trees"}, []string{"tree", "bird"}},
		{"unknown dropped", []string{"crane", "duck", "car"}, []string{"car"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeObjects(tt.in))
		})
	}
}

func TestAnalysisResultNormalize(t *testing.T) {
	r := AnalysisResult{Count: -3, Objects: []string{"tree", "unicorn", "person"}}
	r.Normalize()

	assert.Equal(t, 0, r.Count)
	assert.Equal(t, []string{"person", "tree"}, r.Objects)
}

func TestIsKnownLabel(t *testing.T) {
	for _, label := range Vocabulary {
		assert.True(t, IsKnownLabel(label), label)
	}
	assert.False(t, IsKnownLabel("Person"))
}
