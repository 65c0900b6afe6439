package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pgmigrate/internal/model"
)

func TestApplyTemplate(t *testing.T) {
	assert.Equal(t, "laplacian_7", applyTemplate("laplacian_{user_id}", "7"))
	assert.Equal(t, "laplacian_42", applyTemplate("laplacian_{user_id}", "42"))
	assert.Equal(t, "no_placeholder", applyTemplate("no_placeholder", "42"))
}

func TestFirstColumnString(t *testing.T) {
	assert.Equal(t, "acme", firstColumnString(model.StringValue("acme")))
	assert.Equal(t, "42", firstColumnString(model.Int64Value(42)))
}
