package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSellersCommand_InvalidProductsSellerID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "sellers", "--products", "phone-hub")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid seller id")
}
