package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"strips path and query", "https://Example.com/pricing?x=1", "https://example.com", false},
		{"strips fragment", "http://example.com/#top", "http://example.com", false},
		{"keeps port", "https://example.com:8443/admin", "https://example.com:8443", false},
		{"adds https to bare host", "example.com/about", "https://example.com", false},
		{"trims whitespace", "  https://example.com  ", "https://example.com", false},
		{"empty", "", "", true},
		{"no host", "https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFeatureVector(t *testing.T) {
	raw := []byte(`{
		"url": "https://example.com",
		"domStructure": {"tag": "div", "children": [{"tag": "header"}]},
		"cssClasses": ["container"]
	}`)

	fv, err := DecodeFeatureVector(raw)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", fv.URL)
	require.NotNil(t, fv.DOMStructure)
	assert.Equal(t, "div", fv.DOMStructure.Tag)
	assert.Len(t, fv.DOMStructure.Children, 1)

	// Normalize leaves no nil collections behind.
	assert.NotNil(t, fv.JSLibraries)
	assert.NotNil(t, fv.ResponsiveFeatures.MediaQueries)
	assert.NotNil(t, fv.PerformanceMetrics)
}

func TestDecodeFeatureVector_Malformed(t *testing.T) {
	_, err := DecodeFeatureVector(nil)
	assert.Error(t, err)

	_, err = DecodeFeatureVector([]byte(`{"url": `))
	assert.Error(t, err)

	_, err = DecodeFeatureVector([]byte(`{"domStructure": "not-a-node"}`))
	assert.Error(t, err)
}

func TestFeatureVectorValidate(t *testing.T) {
	assert.Error(t, (&FeatureVector{}).Validate())
	assert.Error(t, (&FeatureVector{URL: "   "}).Validate())
	assert.NoError(t, (&FeatureVector{URL: "https://example.com"}).Validate())
}
