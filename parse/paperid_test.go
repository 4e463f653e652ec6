package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPaperID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2023.acl-long.412", true},
		{"2021.emnlp-main.55", true},
		{"  2023.acl-long.412  ", true},
		{"W99-0512", true},
		{"w99-0512", true},
		{"A00-1000", true},
		{"find 2023.acl-long.412 for me", false},
		{"low-resource translation", false},
		{"2023.acl-long", false},
		{"W999-0512", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPaperID(tt.input))
		})
	}
}

func TestNormalizePaperID(t *testing.T) {
	assert.Equal(t, "2023.acl-long.412", NormalizePaperID("2023.ACL-Long.412"))
	assert.Equal(t, "W99-0512", NormalizePaperID("w99-0512"))
	assert.Equal(t, "A00-1000", NormalizePaperID(" a00-1000 "))
}

func TestExtractPaperID(t *testing.T) {
	t.Run("modern embedded in text", func(t *testing.T) {
		assert.Equal(t, "2023.acl-long.412",
			ExtractPaperID("what is 2023.ACL-long.412 about?"))
	})

	t.Run("legacy embedded in text", func(t *testing.T) {
		assert.Equal(t, "W99-0512",
			ExtractPaperID("summarize w99-0512 please"))
	})

	t.Run("modern preferred over legacy", func(t *testing.T) {
		assert.Equal(t, "2023.acl-long.412",
			ExtractPaperID("compare W99-0512 with 2023.acl-long.412"))
	})

	t.Run("no identifier", func(t *testing.T) {
		assert.Equal(t, "", ExtractPaperID("neural machine translation"))
	})
}

func TestMatchQuery(t *testing.T) {
	kind, id := MatchQuery("2023.acl-long.412")
	assert.Equal(t, KindDocumentID, kind)
	assert.Equal(t, "2023.acl-long.412", id)

	kind, id = MatchQuery("papers on parsing")
	assert.Equal(t, KindNaturalLanguage, kind)
	assert.Equal(t, "", id)
}
