package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateQuoteNumber(t *testing.T) {
	number := GenerateQuoteNumber()
	assert.True(t, strings.HasPrefix(number, "EQ-"))
	assert.Len(t, number, len("EQ-")+9)
}

func TestGenerateVersionCode(t *testing.T) {
	tests := []struct {
		previous string
		want     string
	}{
		{"", "RV-01"},
		{"RV-01", "RV-02"},
		{"RV-09", "RV-10"},
		{"RV-99", "RV-100"},
		{"garbage", "RV-01"},
		{"RV-xx", "RV-01"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateVersionCode(tt.previous), "previous=%q", tt.previous)
	}
}
