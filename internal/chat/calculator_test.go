package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculator_Run(t *testing.T) {
	calc := Calculator{}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"basic addition", "5+3", "The result of 5+3 is 8"},
		{"multiplication", "10*2", "The result of 10*2 is 20"},
		{"parentheses", "(5+3)*2", "The result of (5+3)*2 is 16"},
		{"division", "10/2", "The result of 10/2 is 5"},
		{"power", "2**3", "The result of 2**3 is 8"},
		{"spaces preserved in echo", "5 + 3", "The result of 5 + 3 is 8"},
		{"fractional result", "7/2", "The result of 7/2 is 3.5"},
		{"unary minus", "-5+3", "The result of -5+3 is -2"},
		{"precedence", "2+3*4", "The result of 2+3*4 is 14"},
		{"power is right associative", "2**3**2", "The result of 2**3**2 is 512"},
		{"negative exponent", "2**-1", "The result of 2**-1 is 0.5"},
		{"nested parentheses", "((2+2)*(3+1))/4", "The result of ((2+2)*(3+1))/4 is 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calc.Run(tt.input))
		})
	}
}

func TestCalculator_Run_Errors(t *testing.T) {
	calc := Calculator{}

	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"empty input", "", "provide a mathematical expression"},
		{"division by zero", "5/0", "Division by zero is not allowed"},
		{"division by computed zero", "5/(3-3)", "Division by zero is not allowed"},
		{"invalid characters", "5+3; import os", "Invalid characters"},
		{"letters rejected", "five plus three", "Invalid characters"},
		{"mismatched parentheses", "(5+3", "Mismatched parentheses"},
		{"dangling operator", "5+*3", "check your syntax"},
		{"trailing operator", "5+", "check your syntax"},
		{"double decimal point", "1.2.3", "check your syntax"},
		{"empty parentheses", "()", "check your syntax"},
		{"overflowing power", "10**400", "infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Run(tt.input)
			assert.True(t, strings.HasPrefix(got, "Error:"), "expected an error reply, got %q", got)
			assert.Contains(t, got, tt.contains)
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"1+2+3", 6},
		{"10-4-3", 3},
		{"2*3**2", 18},
		{"100/10/2", 5},
		{"5*-2", -10},
		{"5--3", 8},
		{"0.1+0.2", 0.30000000000000004},
		{"(1+2)*(3+4)", 21},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := evaluate(tt.input)
			assert.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "8", formatNumber(8.0))
	assert.Equal(t, "3.5", formatNumber(3.5))
	assert.Equal(t, "-2", formatNumber(-2.0))
	assert.Equal(t, "0.3333333333333333", formatNumber(1.0/3.0))
}
