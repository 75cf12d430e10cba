package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry maps a feed provider's channel identifier to the name the channel is
// stored under.
type Entry struct {
	ProviderID  string `yaml:"provider_id" json:"provider_id"`
	DisplayName string `yaml:"display_name" json:"display_name"`
}

// Catalog is an ordered, immutable list of channel entries.
type Catalog struct {
	entries []Entry
}

func New(entries []Entry) (*Catalog, error) {
	seen := make(map[string]bool, len(entries))
	validated := make([]Entry, 0, len(entries))

	for i, entry := range entries {
		entry.ProviderID = strings.TrimSpace(entry.ProviderID)
		entry.DisplayName = strings.TrimSpace(entry.DisplayName)

		if entry.ProviderID == "" {
			return nil, fmt.Errorf("entry %d: provider id is required", i)
		}
		if entry.DisplayName == "" {
			return nil, fmt.Errorf("entry %d: display name is required", i)
		}
		// The display name is the replace key in the store.
		if seen[entry.DisplayName] {
			return nil, fmt.Errorf("entry %d: duplicate display name '%s'", i, entry.DisplayName)
		}
		seen[entry.DisplayName] = true

		validated = append(validated, entry)
	}

	return &Catalog{entries: validated}, nil
}

func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// LoadFile reads a YAML (or JSON) list of entries.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	return New(entries)
}

// Default returns the channel line-up the job has always fetched.
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	return c
}

var defaultEntries = []Entry{
	{ProviderID: "aljazeera.net", DisplayName: "Al Jazeera Intl"},
	{ProviderID: "nrk1.nrk.no", DisplayName: "NRK1 HD"},
	{ProviderID: "nrk1.nrk.no", DisplayName: "NRK1 Midtnytt"},
	{ProviderID: "nrk2.nrk.no", DisplayName: "NRK2"},
	{ProviderID: "nrk2.nrk.no", DisplayName: "NRK2 HD"},
	{ProviderID: "nrk3.nrk.no", DisplayName: "NRK3 HD"},
	{ProviderID: "no.bbchd.no", DisplayName: "BBC World News"},
	{ProviderID: "film.tv2.no", DisplayName: "TV2 Film"},
	{ProviderID: "bliss.tv2.no", DisplayName: "TV2 Bliss"},
	{ProviderID: "tv2.no", DisplayName: "TV2"},
	{ProviderID: "tv2.no", DisplayName: "TV2 HD"},
	{ProviderID: "news.tv2.no", DisplayName: "TV2 Nyheter"},
	{ProviderID: "sport.tv2.no", DisplayName: "TV2 Sport"},
	{ProviderID: "pl1.tv2.no", DisplayName: "TV2 Premium"},
	{ProviderID: "pl2.tv2.no", DisplayName: "TV2 Premium2"},
	{ProviderID: "pl3.tv2.no", DisplayName: "TV2 Premium3"},
	{ProviderID: "pl1.tv2.no", DisplayName: "TV2 Premium HD"},
	{ProviderID: "pl2.tv2.no", DisplayName: "TV2 Premium2 HD"},
	{ProviderID: "pl3.tv2.no", DisplayName: "TV2 Premium3 HD"},
	{ProviderID: "zebra.tv2.no", DisplayName: "TV2 Zebra"},
	{ProviderID: "supertv.nrk.no", DisplayName: "NRK Super"},
	{ProviderID: "cnn.com", DisplayName: "CNN International"},
}
