package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

// ValidateCatalog checks that a catalog can drive a game session
func ValidateCatalog(catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog validation: catalog is required")
	}
	if strings.TrimSpace(catalog.Name) == "" {
		return fmt.Errorf("catalog validation: name is required")
	}
	if len(catalog.Riddles) == 0 {
		return fmt.Errorf("catalog validation: at least one riddle is required")
	}
	if len(catalog.Riddles) > MaxCatalogLength {
		return fmt.Errorf("catalog validation: at most %d riddles allowed, got %d", MaxCatalogLength, len(catalog.Riddles))
	}

	for i, r := range catalog.Riddles {
		if strings.TrimSpace(r.Prompt) == "" {
			return fmt.Errorf("catalog validation: riddle %d has an empty prompt", i+1)
		}
		if strings.TrimSpace(r.Answer) == "" {
			return fmt.Errorf("catalog validation: riddle %d has an empty answer", i+1)
		}
		if strings.TrimSpace(r.Icon) == "" {
			return fmt.Errorf("catalog validation: riddle %d has an empty icon", i+1)
		}
	}

	// Answers are the match key and icons the consumed key, so both must be unique
	if dup := lo.FindDuplicatesBy(catalog.Riddles, func(r Riddle) string { return r.Answer }); len(dup) > 0 {
		return fmt.Errorf("catalog validation: duplicate answer %q", dup[0].Answer)
	}
	if dup := lo.FindDuplicatesBy(catalog.Riddles, func(r Riddle) string { return r.Icon }); len(dup) > 0 {
		return fmt.Errorf("catalog validation: duplicate icon %q", dup[0].Icon)
	}

	return nil
}

// LoadCatalogFile loads and validates a catalog from a JSON file
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog '%s': %w", path, err)
	}

	if err := ValidateCatalog(&catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog '%s': %w", path, err)
	}

	return &catalog, nil
}

// DefaultCatalog returns the built-in community catalog
func DefaultCatalog() *Catalog {
	return &Catalog{
		Name:        "community",
		Description: "Six members of a community and the roles they play",
		Subject:     DefaultSubject,
		Riddles: []Riddle{
			{Prompt: "I make and enforce laws.", Answer: "Government", Icon: "fa-landmark"},
			{Prompt: "I am a person who lives in a community.", Answer: "Citizen", Icon: "fa-user"},
			{Prompt: "I guide and make decisions for others.", Answer: "Leader", Icon: "fa-gavel"},
			{Prompt: "I tell people what they should and shouldn't do.", Answer: "Rules", Icon: "fa-scroll"},
			{Prompt: "A group of people living and working together.", Answer: "Community", Icon: "fa-users"},
			{Prompt: "A system where people have the right to choose their leaders.", Answer: "Democracy", Icon: "fa-check-to-slot"},
		},
	}
}

// subject returns the noun used in the completion summary
func (c *Catalog) subject() string {
	if c.Subject == "" {
		return DefaultSubject
	}
	return c.Subject
}

// clone returns a deep copy so sessions never share the riddle slice
func (c *Catalog) clone() *Catalog {
	cp := *c
	cp.Riddles = append([]Riddle(nil), c.Riddles...)
	return &cp
}
