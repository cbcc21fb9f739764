package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue serializes a document sub-record for storage in a JSON column.
// Works with both the postgres and sqlite drivers.
func jsonValue(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// jsonScan deserializes a JSON column into a document sub-record
func jsonScan(dst interface{}, src interface{}) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("unsupported column type %T for JSON scan", src)
	}
}
