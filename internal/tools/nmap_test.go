package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNmapScanMissingBinaryReturnsText(t *testing.T) {
	n := NewNmapRunner("/nonexistent/bin/nmap")
	got := n.Scan(context.Background(), "10.0.0.1")
	assert.Contains(t, got, "nmap scan of 10.0.0.1 failed")
}

func TestNewNmapRunnerDefaultsBinary(t *testing.T) {
	n := NewNmapRunner("")
	assert.Equal(t, "nmap", n.binary)
}
