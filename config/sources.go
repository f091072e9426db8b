package config

import (
	_ "embed"
	"fmt"
	"strings"

	"pricehound/models"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

const (
	defaultMaxBlocks     = 20
	defaultMinNameLength = 6
)

// DomainPriceRule maps a host fragment to the price locators of its product pages.
type DomainPriceRule struct {
	Match    string   `yaml:"match"`
	Locators []string `yaml:"locators"`
}

// URLPriceRules drives price lookup on a single product page.
type URLPriceRules struct {
	TitleLocators []string          `yaml:"title_locators"`
	Domains       []DomainPriceRule `yaml:"domains"`
	Generic       []string          `yaml:"generic"`
}

// LocatorsFor returns the price locators for host, domain specific ones first.
func (r URLPriceRules) LocatorsFor(host string) []string {
	host = strings.ToLower(host)
	var out []string
	for _, d := range r.Domains {
		if strings.Contains(host, d.Match) {
			out = append(out, d.Locators...)
		}
	}
	return append(out, r.Generic...)
}

// Catalog is the immutable set of source descriptors and lookup tables.
type Catalog struct {
	Sources    []models.SourceDescriptor `yaml:"sources"`
	URLPrice   URLPriceRules             `yaml:"url_price"`
	UserAgents []string                  `yaml:"user_agents"`

	index map[models.SourceID]models.SourceDescriptor
}

// LoadCatalog parses the embedded source tables.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(sourcesYAML)
}

// ParseCatalog parses and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog: %w", err)
	}
	if len(c.UserAgents) == 0 {
		return nil, fmt.Errorf("source catalog declares no user agents")
	}

	c.index = make(map[models.SourceID]models.SourceDescriptor, len(c.Sources))
	for i := range c.Sources {
		s := &c.Sources[i]
		if err := validateSource(s); err != nil {
			return nil, err
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("source %s declared twice", s.ID)
		}
		c.index[s.ID] = *s
	}
	return &c, nil
}

func validateSource(s *models.SourceDescriptor) error {
	if s.ID == "" {
		return fmt.Errorf("source without id")
	}
	if !strings.Contains(s.SearchURL, "{query}") {
		return fmt.Errorf("source %s: search_url lacks {query} placeholder", s.ID)
	}
	if s.ResolveRelative && s.BaseURL == "" {
		return fmt.Errorf("source %s: resolve_relative requires base_url", s.ID)
	}
	if len(s.BlockLocators) == 0 || len(s.NameLocators) == 0 || len(s.PriceLocators) == 0 || len(s.URLLocators) == 0 {
		return fmt.Errorf("source %s: block, name, price and url locators are required", s.ID)
	}
	if s.MaxBlocks <= 0 {
		s.MaxBlocks = defaultMaxBlocks
	}
	if s.MinNameLength <= 0 {
		s.MinNameLength = defaultMinNameLength
	}
	if s.Name == "" {
		s.Name = string(s.ID)
	}
	return nil
}

// Source returns the descriptor of id.
func (c *Catalog) Source(id models.SourceID) (models.SourceDescriptor, bool) {
	s, ok := c.index[id]
	return s, ok
}
