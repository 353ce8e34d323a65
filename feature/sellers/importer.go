package sellers

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type importFile struct {
	Sellers []importEntry `yaml:"sellers"`
}

type importEntry struct {
	Folder  string `yaml:"folder"`
	Company string `yaml:"company"`
	Active  *bool  `yaml:"active"`
}

// ParseYAML reads a seller list. Entries default to active; a missing company
// name falls back to the folder.
//
//	sellers:
//	  - folder: acme
//	    company: ACME Corp
//	  - folder: globex
//	    active: false
func ParseYAML(r io.Reader) ([]Seller, error) {
	var f importFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode sellers: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sellers))
	out := make([]Seller, 0, len(f.Sellers))
	for i, e := range f.Sellers {
		folder := NormalizeFolder(e.Folder)
		if folder == "" {
			return nil, fmt.Errorf("seller %d: folder is required", i)
		}
		if _, dup := seen[folder]; dup {
			return nil, fmt.Errorf("seller %d: folder %q listed twice", i, folder)
		}
		seen[folder] = struct{}{}

		s := Seller{FolderName: folder, CompanyName: e.Company, Active: true}
		if s.CompanyName == "" {
			s.CompanyName = folder
		}
		if e.Active != nil {
			s.Active = *e.Active
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadFile parses the seller list at path.
func LoadFile(path string) ([]Seller, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ParseYAML(f)
}
