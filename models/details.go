package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// QuotationType identifies which detail variant a quotation or order carries
type QuotationType string

const (
	TypeVehicle QuotationType = "vehicle"
	TypeParts   QuotationType = "parts"
)

// Valid reports whether the type is one of the known variants
func (t QuotationType) Valid() bool {
	return t == TypeVehicle || t == TypeParts
}

// ContactInfo carries the requester contact fields supplied on guest
// quotations
type ContactInfo struct {
	ContactName  string `json:"contactName,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	Message      string `json:"message,omitempty"`
}

// VehicleDetails is the detail variant for full-vehicle quotation requests
type VehicleDetails struct {
	MakeModel string `json:"make_model"`
	Model     string `json:"model"`
	Year      string `json:"year"`
	Mileage   string `json:"mileage,omitempty"`
	Grade     string `json:"grade,omitempty"`
	Color     string `json:"color,omitempty"`
	Budget    string `json:"budget,omitempty"`
	Country   string `json:"country"`
	Port      string `json:"port,omitempty"`
	ContactInfo
}

// PartsDetails is the detail variant for spare-parts quotation requests
type PartsDetails struct {
	MakeModel        string `json:"make_model"`
	Model            string `json:"model"`
	Year             string `json:"year"`
	ChassisNumber    string `json:"chassis_number,omitempty"`
	PartNumber       string `json:"part_number,omitempty"`
	PartsDescription string `json:"parts_description"`
	Country          string `json:"country"`
	Port             string `json:"port,omitempty"`
	PartImage        string `json:"part_image,omitempty"`
	ContactInfo
}

// Details is a tagged union over the two detail variants. Exactly one of
// Vehicle or Parts is set. It marshals to the flat attribute bag the API
// has always exposed, so the wire shape is unchanged.
type Details struct {
	Vehicle *VehicleDetails `json:"-"`
	Parts   *PartsDetails   `json:"-"`
}

// Type reports which variant is set, or the empty type for the zero value
func (d Details) Type() QuotationType {
	switch {
	case d.Parts != nil:
		return TypeParts
	case d.Vehicle != nil:
		return TypeVehicle
	default:
		return ""
	}
}

// IsZero reports whether neither variant is set
func (d Details) IsZero() bool {
	return d.Vehicle == nil && d.Parts == nil
}

// DecodeDetails parses a raw detail payload into the variant matching the
// declared quotation type
func DecodeDetails(qType QuotationType, raw []byte) (Details, error) {
	switch qType {
	case TypeVehicle:
		var v VehicleDetails
		if err := json.Unmarshal(raw, &v); err != nil {
			return Details{}, fmt.Errorf("invalid vehicle details: %w", err)
		}
		return Details{Vehicle: &v}, nil
	case TypeParts:
		var p PartsDetails
		if err := json.Unmarshal(raw, &p); err != nil {
			return Details{}, fmt.Errorf("invalid parts details: %w", err)
		}
		return Details{Parts: &p}, nil
	default:
		return Details{}, fmt.Errorf("unknown quotation type %q", qType)
	}
}

// MarshalJSON flattens the active variant
func (d Details) MarshalJSON() ([]byte, error) {
	switch {
	case d.Parts != nil:
		return json.Marshal(d.Parts)
	case d.Vehicle != nil:
		return json.Marshal(d.Vehicle)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON picks the variant by sniffing parts-only keys. Stored rows
// always came through DecodeDetails, so the keys are authoritative.
func (d *Details) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe == nil {
		*d = Details{}
		return nil
	}
	_, hasDescription := probe["parts_description"]
	_, hasPartNumber := probe["part_number"]
	_, hasChassis := probe["chassis_number"]
	_, hasImage := probe["part_image"]
	if hasDescription || hasPartNumber || hasChassis || hasImage {
		var p PartsDetails
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*d = Details{Parts: &p}
		return nil
	}
	var v VehicleDetails
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Details{Vehicle: &v}
	return nil
}

// Value implements driver.Valuer for the JSON column
func (d Details) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return jsonValue(d)
}

// Scan implements sql.Scanner for the JSON column
func (d *Details) Scan(src interface{}) error {
	return jsonScan(d, src)
}

// SetPartImage records the uploaded part image URL on the parts variant;
// it is a no-op for vehicle details
func (d *Details) SetPartImage(url string) {
	if d.Parts != nil {
		d.Parts.PartImage = url
	}
}

// PartImage returns the uploaded part image URL, if any
func (d Details) PartImage() string {
	if d.Parts != nil {
		return d.Parts.PartImage
	}
	return ""
}
