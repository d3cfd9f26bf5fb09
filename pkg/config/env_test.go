package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("BANKCORE_TEST_VAR", "test_value")

	assert.Equal(t, "test_value", GetEnv("BANKCORE_TEST_VAR", "default"))
	assert.Equal(t, "default", GetEnv("BANKCORE_NONEXISTENT_VAR", "default"))
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", maskValue(""))
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****able", maskValue("postgres://u:p@db/bank?sslmode=disable"))
}
