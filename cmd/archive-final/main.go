// archive-final moves documents with final status out of the active
// library into the archive folder. One-shot maintenance tool for
// libraries that accumulated finalized documents before archiving
// was part of the workflow.
package main

import (
	"fmt"
	"strings"

	"github.com/dpshade/pocket-doc/internal/config"
	"github.com/dpshade/pocket-doc/internal/models"
	"github.com/dpshade/pocket-doc/internal/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		return
	}

	svc, err := service.NewService(cfg.LibraryDir)
	if err != nil {
		fmt.Printf("Error initializing service: %v\n", err)
		return
	}

	docs, err := svc.ListDocuments()
	if err != nil {
		fmt.Printf("Error listing documents: %v\n", err)
		return
	}

	var finals []*models.Document
	for _, doc := range docs {
		if doc.Status == models.StatusFinal {
			finals = append(finals, doc)
		}
	}

	if len(finals) == 0 {
		fmt.Println("No final documents in the active library - nothing to do")
		return
	}

	fmt.Printf("Found %d final documents to archive:\n", len(finals))
	for _, doc := range finals {
		fmt.Printf("  - %s (%s)\n", doc.Title, doc.ID)
	}

	fmt.Print("\nProceed with archiving? (y/N): ")
	var response string
	fmt.Scanln(&response)

	if strings.ToLower(response) != "y" {
		fmt.Println("Cancelled")
		return
	}

	archived := 0
	for _, doc := range finals {
		fmt.Printf("Archiving %s\n", doc.ID)
		if err := svc.ArchiveDocument(doc.ID); err != nil {
			fmt.Printf("Error archiving %s: %v\n", doc.ID, err)
			continue
		}
		archived++
	}

	fmt.Printf("Done! Moved %d documents to the archive folder\n", archived)
}
