package cli

import (
	"github.com/spf13/cobra"

	"github.com/tomatyss/taskter/internal/config"
)

var overrides config.Overrides

var rootCmd = &cobra.Command{
	Use:   "taskter",
	Short: "A file-backed Kanban board with LLM agent execution",
	Long:  "taskter — a single-user Kanban board whose cards can be picked up by LLM agents.\nYou are the PM. Agents are your workers.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&overrides.ConfigFile, "config-file", "", "path to config.toml (overrides the OS config directory)")
	rootCmd.PersistentFlags().StringVar(&overrides.DataDir, "data-dir", "", "project data directory (default .taskter)")
	rootCmd.PersistentFlags().StringVar(&overrides.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key override")
	rootCmd.PersistentFlags().StringVar(&overrides.OpenAIBaseURL, "openai-base-url", "", "OpenAI base URL override")
	rootCmd.PersistentFlags().StringVar(&overrides.GeminiAPIKey, "gemini-api-key", "", "Gemini API key override")
	rootCmd.PersistentFlags().StringVar(&overrides.OllamaAPIKey, "ollama-api-key", "", "Ollama API key override")
	rootCmd.PersistentFlags().StringVar(&overrides.OllamaBaseURL, "ollama-base-url", "", "Ollama base URL override")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(descriptionCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(okrsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(boardCmd)
}
