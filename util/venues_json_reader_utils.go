package util

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	services "venues-server/service"
)

// ReadVenueInputsFromJSON loads a seed fixture: a JSON array of venues in
// the admin write shape.
func ReadVenueInputsFromJSON(filePath string) ([]services.VenueInput, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	var inputs []services.VenueInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal venues from %q: %w", filePath, err)
	}
	return inputs, nil
}
