package handlers

import (
	"bytes"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeURL(t *testing.T) {
	tmpl := template.Must(template.New("img").Funcs(TemplateFuncs()).Parse(`<img src="{{safeURL .}}">`))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uploaded image", "data:image/png;base64,AAAA", `<img src="data:image/png;base64,AAAA">`},
		{"http url", "https://example.com/logo.png", `<img src="https://example.com/logo.png">`},
		{"script url", "javascript:alert(1)", `<img src="#ZgotmplZ">`},
		{"non-image data uri", "data:text/html;base64,PHNjcmlwdD4=", `<img src="#ZgotmplZ">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			require.NoError(t, tmpl.Execute(buf, tt.in))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
