package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseJSON unmarshals the data in r into v.
func ParseJSON(r io.Reader, v any) error {
	// Read the entire content first so trailing garbage after a valid document is reported.
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading from io.Reader: %v", err)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("couldn't parse JSON: %v", err)
	}
	return nil
}

// UnmarshalJSON returns data decoded as a T.
func UnmarshalJSON[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("couldn't parse JSON: %v", err)
	}
	return v, nil
}
