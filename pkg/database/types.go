package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray stores an ordered list of strings in a single TEXT column as a
// JSON array, readable on PostgreSQL, MySQL and SQLite alike. Values written
// by older rows in PostgreSQL array literal form ({a,b}) are still scanned.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from the database.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return a.scanBytes(v)
	case string:
		return a.scanBytes([]byte(v))
	default:
		return errors.New("StringArray: unsupported scan type")
	}
}

func (a *StringArray) scanBytes(data []byte) error {
	str := strings.TrimSpace(string(data))

	switch {
	case str == "":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(str, "["):
		return json.Unmarshal([]byte(str), (*[]string)(a))
	case strings.HasPrefix(str, "{") && strings.HasSuffix(str, "}"):
		inner := str[1 : len(str)-1]
		if inner == "" {
			*a = StringArray{}
			return nil
		}
		*a = parsePostgresArray(inner)
		return nil
	default:
		*a = StringArray{str}
		return nil
	}
}

// parsePostgresArray parses PostgreSQL array format, handling quoted strings.
func parsePostgresArray(s string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false
	escaped := false

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			escaped = true
		case '"':
			inQuotes = !inQuotes
		case ',':
			if inQuotes {
				current.WriteRune(r)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// Value implements the driver.Valuer interface for writing to the database.
// An empty array is written as "[]" so the column never holds NULL for it.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}
