package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumericConversions(t *testing.T) {
	params := map[string]interface{}{
		"int":   3,
		"float": 2.5,
		"f32":   float32(1.5),
		"flag":  true,
		"name":  "flux",
	}

	assert.Equal(t, 3, Int(params, "int", 0))
	assert.Equal(t, 2, Int(params, "float", 0))
	assert.Equal(t, 3.0, Float(params, "int", 0))
	assert.Equal(t, 1.5, Float(params, "f32", 0))
	assert.True(t, Bool(params, "flag", false))
	assert.Equal(t, "flux", String(params, "name", ""))

	assert.Equal(t, 7, Int(params, "missing", 7))
	assert.Equal(t, 0.25, Float(params, "name", 0.25))
	assert.True(t, Bool(params, "int", true))
}

func TestCopyIsShallowAndIndependent(t *testing.T) {
	src := map[string]interface{}{"gamma": 2.5}
	dst := Copy(src)
	dst["gamma"] = 1.0
	assert.Equal(t, 2.5, src["gamma"])
}
