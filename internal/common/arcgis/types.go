package arcgis

import "encoding/json"

// SpatialReference identifies the coordinate system of a geometry.
type SpatialReference struct {
	WKID int `json:"wkid"`
}

// Geometry is a point in the layer's coordinate system.
type Geometry struct {
	X                float64          `json:"x"`
	Y                float64          `json:"y"`
	SpatialReference SpatialReference `json:"spatialReference"`
}

// Feature is a geometry plus attributes record as the service understands
// it. Attribute values keep their JSON types: numbers are float64, absent
// attributes are absent keys, explicit nulls are nil entries.
type Feature struct {
	Geometry   *Geometry              `json:"geometry,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// ObjectID returns the feature's OBJECTID attribute, or false when missing.
func (f Feature) ObjectID() (int64, bool) {
	v, ok := f.Attributes["OBJECTID"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// StringAttr returns a string attribute, or "" when missing or not a string.
func (f Feature) StringAttr(name string) string {
	if s, ok := f.Attributes[name].(string); ok {
		return s
	}
	return ""
}

// CodedValue is one entry of a coded-value domain.
type CodedValue struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Domain is a server-declared enumeration restricting a field to a finite
// set of valid codes. Type is "codedValue" for the domains this tool reads.
type Domain struct {
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	CodedValues []CodedValue `json:"codedValues"`
}

// Field describes one layer field including its optional domain.
type Field struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Alias  string  `json:"alias"`
	Domain *Domain `json:"domain"`
}

// AddResult is the per-record outcome of a bulk insert, in submission order.
type AddResult struct {
	ObjectID int64         `json:"objectId"`
	Success  bool          `json:"success"`
	Error    *ServiceError `json:"error,omitempty"`
}

// ServiceError is the error document the service embeds in otherwise
// successful HTTP responses.
type ServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ProjectData locates the three layers of a workforce project item.
type ProjectData struct {
	Assignments ProjectLayer `json:"assignments"`
	Dispatchers ProjectLayer `json:"dispatchers"`
	Workers     ProjectLayer `json:"workers"`
}

type ProjectLayer struct {
	URL string `json:"url"`
}
