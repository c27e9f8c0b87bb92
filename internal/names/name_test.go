package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"requests", "requests", true},
		{"Django", "django", true},
		{"typing_extensions", "typing-extensions", true},
		{"ruamel.yaml", "ruamel-yaml", true},
		{"zope.interface-ext", "zope-interface-ext", true},
		{"A", "a", true},
		{"pkg__name", "pkg-name", true},
		{"pkg-.name", "pkg-name", true},
		{"", "", false},
		{"-leading", "", false},
		{"trailing-", "", false},
		{".dotfirst", "", false},
		{"has space", "", false},
		{"has/slash", "", false},
		{"émoji", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseName(tt.input)
			if !tt.ok {
				require.Error(t, err)
				var invalid *InvalidNameError
				assert.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "friendly-bard", Normalize("Friendly-Bard"))
	assert.Equal(t, "friendly-bard", Normalize("FRIENDLY.BARD"))
	assert.Equal(t, "friendly-bard", Normalize("friendly_._bard"))
}
