package main

import (
	"github.com/yeren66/LLM4ArxivPaper/cmd/handlers"
	"github.com/yeren66/LLM4ArxivPaper/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
