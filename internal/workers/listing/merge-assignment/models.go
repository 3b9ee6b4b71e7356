// internal/workers/listing/merge-assignment/models.go
package mergeassignment

import "listing-matcher/internal/models"

// Realtor holds the caller-supplied literals.
type Realtor struct {
	Name    string
	Email   string
	Address string
}

// Images are the classified filenames per category, in input order.
type Images struct {
	HouseFiles  []string
	LogoFiles   []string
	PersonFiles []string
}

// Input matches the process variables left by the earlier listing tasks.
// PropertyAddress fills the template's realtor address slot.
type Input struct {
	Template        models.Template    `json:"template"`
	Fields          map[string]*string `json:"fields"`
	HouseFiles      []string           `json:"houseFiles"`
	LogoFiles       []string           `json:"logoFiles"`
	PersonFiles     []string           `json:"personFiles"`
	RealtorName     string             `json:"realtorName"`
	RealtorEmail    string             `json:"realtorEmail"`
	PropertyAddress string             `json:"propertyAddress"`
}

type Output struct {
	Assignment map[string]*string `json:"assignment"`
	// Placeholders and files left over when slot and file counts differ.
	UnassignedKeys []string `json:"unassignedKeys,omitempty"`
	UnusedFiles    []string `json:"unusedFiles,omitempty"`
}
