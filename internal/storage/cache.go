package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dpshade/pocket-doc/internal/models"
)

// DocumentMetadata represents cached metadata for a document
type DocumentMetadata struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"template_id,omitempty"`
	Title      string         `json:"title"`
	Status     models.Status  `json:"status"`
	Fields     map[string]any `json:"fields"`
	Meta       models.Meta    `json:"metadata"`
	FilePath   string         `json:"file_path"`
	ModTime    time.Time      `json:"mod_time"`
}

// MetadataCache handles caching of document metadata so list operations do
// not reparse every file in the library
type MetadataCache struct {
	cacheDir  string
	cacheFile string
	metadata  map[string]*DocumentMetadata
	mu        sync.RWMutex // Protects metadata map from concurrent access
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(baseDir string) *MetadataCache {
	cacheDir := filepath.Join(baseDir, ".pocket-doc", "cache")
	return &MetadataCache{
		cacheDir:  cacheDir,
		cacheFile: filepath.Join(cacheDir, "metadata.json"),
		metadata:  make(map[string]*DocumentMetadata),
	}
}

// Load loads the metadata cache from disk
func (c *MetadataCache) Load() error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if _, err := os.Stat(c.cacheFile); os.IsNotExist(err) {
		return nil // No cache file exists yet
	}

	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	c.mu.Lock()
	if err := json.Unmarshal(data, &c.metadata); err != nil {
		// If cache is corrupted, start fresh
		c.metadata = make(map[string]*DocumentMetadata)
	}
	c.mu.Unlock()

	return nil
}

// Save saves the metadata cache to disk
func (c *MetadataCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Get retrieves metadata for a file, checking if cache is valid
func (c *MetadataCache) Get(filePath string, fileInfo os.FileInfo) (*DocumentMetadata, bool) {
	c.mu.RLock()
	cached, exists := c.metadata[filePath]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	// Check if file has been modified
	if !fileInfo.ModTime().Equal(cached.ModTime) {
		return nil, false
	}

	return cached, true
}

// Set stores metadata in the cache
func (c *MetadataCache) Set(relPath string, fileInfo os.FileInfo, doc *models.Document) {
	c.mu.Lock()
	c.metadata[relPath] = &DocumentMetadata{
		ID:         doc.ID,
		TemplateID: doc.TemplateID,
		Title:      doc.Title,
		Status:     doc.Status,
		Fields:     doc.Fields,
		Meta:       doc.Meta,
		FilePath:   doc.FilePath,
		ModTime:    fileInfo.ModTime(),
	}
	c.mu.Unlock()
}

// ToDocument converts cached metadata back to a Document (without content)
func (m *DocumentMetadata) ToDocument() *models.Document {
	return &models.Document{
		ID:         m.ID,
		TemplateID: m.TemplateID,
		Title:      m.Title,
		Status:     m.Status,
		Fields:     m.Fields,
		Meta:       m.Meta,
		FilePath:   m.FilePath,
		Content:    "", // Content loaded on demand
	}
}

// Cleanup removes cache entries for files that no longer exist
func (c *MetadataCache) Cleanup(existingFiles map[string]bool) {
	c.mu.Lock()
	for filePath := range c.metadata {
		if !existingFiles[filePath] {
			delete(c.metadata, filePath)
		}
	}
	c.mu.Unlock()
}
