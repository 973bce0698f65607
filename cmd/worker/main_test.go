package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/app"
	_ "github.com/odyssey-erp/aqp/testing"
)

func TestMainSkipsRuntimeInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	main()
}
