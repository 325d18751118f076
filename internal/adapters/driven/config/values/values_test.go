package values

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInt(t *testing.T) {
	assert.Equal(t, 4, Int(4))
	assert.Equal(t, 4, Int(int64(4)))
	assert.Equal(t, 4, Int(4.9))
	assert.Equal(t, 12, Int(" 12 "))
	assert.Equal(t, 0, Int("twelve"))
	assert.Equal(t, 0, Int(nil))
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 2.5, Float(2.5))
	assert.Equal(t, 3.0, Float(int64(3)))
	assert.Equal(t, 0.5, Float("0.5"))
	assert.Equal(t, 0.0, Float(true))
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(true))
	assert.True(t, Bool("true"))
	assert.True(t, Bool("1"))
	assert.False(t, Bool("nope"))
	assert.False(t, Bool(1))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Duration("5m"))
	assert.Equal(t, 30*time.Second, Duration(int64(30)))
	assert.Equal(t, time.Second, Duration(time.Second))
	assert.Equal(t, time.Duration(0), Duration("soon"))
}

func TestString(t *testing.T) {
	assert.Equal(t, "x", String("x"))
	assert.Equal(t, "", String(3))
}
