package directory

import (
	"encoding/json"
	"fmt"
	"os"
)

// seedRecord is one entry of a directory seed file: a pre-issued API key
// for a known user id, loaded at startup so an operator doesn't have to
// enroll every controller by hand before the first connection.
type seedRecord struct {
	UserID string `json:"userId"`
	KeyID  string `json:"keyId"`
	Secret string `json:"secret"`
}

// LoadSeed reads a JSON array of seed records from path and enrolls each
// into d.
func LoadSeed(d *BcryptDirectory, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("directory: read seed %s: %w", path, err)
	}
	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("directory: decode seed %s: %w", path, err)
	}
	for _, rec := range records {
		if err := d.Enroll(rec.UserID, rec.KeyID, rec.Secret); err != nil {
			return fmt.Errorf("directory: enroll %s: %w", rec.UserID, err)
		}
	}
	return nil
}
