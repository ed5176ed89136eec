package main

import (
	"os"

	"go.uber.org/zap"

	llmsteps "github.com/temirov/llm-steps/cmd/llm-steps"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	executionErr := llmsteps.Execute()
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(1)
	}

	_ = logger.Sync()
}
