package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"coincoach/backend-go/internal/services"
)

var (
	lessonsForce      bool
	lessonsOutputType string
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Manage the generated lesson cache",
}

var lessonsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate lesson content with Gemini and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ai := services.NewGeminiClient(cfg)
		if !ai.Configured() {
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
		store := services.NewLessonStore(cfg.LessonCacheFile)
		svc := services.NewLessonService(ai, store, cfg.LessonGenerateDelay)

		batch := svc.GenerateAll(context.Background(), lessonsForce)
		failed := 0
		for _, l := range batch.Lessons {
			if l.Error != "" {
				failed++
				log.Printf("lesson %d: %s", l.ID, l.Error)
			}
		}
		log.Printf("generated %d lessons into %s (%d failed)", len(batch.Lessons)-failed, store.Path(), failed)
		if failed > 0 {
			return fmt.Errorf("%d lessons failed", failed)
		}
		return nil
	},
}

var lessonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lessons and whether they are cached",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := services.NewLessonStore(cfg.LessonCacheFile)
		svc := services.NewLessonService(nil, store, 0)
		lessons := svc.List()

		if lessonsOutputType == "json" {
			data, _ := json.MarshalIndent(map[string]any{
				"lessons":     lessons,
				"generatedAt": store.GeneratedAt(),
			}, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		rows := [][]string{}
		for _, l := range lessons {
			cached := "✗"
			if l.Cached {
				cached = "✓"
			}
			rows = append(rows, []string{strconv.Itoa(l.ID), l.Title, cached})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("ID", "Title", "Cached").
			Rows(rows...)

		fmt.Println(t)
		if at := store.GeneratedAt(); at != "" {
			fmt.Printf("last generated: %s\n", at)
		}
		return nil
	},
}

func init() {
	lessonsGenerateCmd.Flags().BoolVar(&lessonsForce, "force", false, "regenerate lessons that are already cached")
	lessonsListCmd.Flags().StringVarP(&lessonsOutputType, "output", "o", "table", "output format: table or json")
	lessonsCmd.AddCommand(lessonsGenerateCmd, lessonsListCmd)
	rootCmd.AddCommand(lessonsCmd)
}
