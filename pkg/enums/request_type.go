package enums

import "fmt"

// RequestType is the kind of action a tool request asks for.
type RequestType string

const (
	RequestTypeBorrow      RequestType = "borrow"
	RequestTypeReturn      RequestType = "return"
	RequestTypeMaintenance RequestType = "maintenance"
	RequestTypeReplacement RequestType = "replacement"
)

var validRequestTypes = []RequestType{
	RequestTypeBorrow,
	RequestTypeReturn,
	RequestTypeMaintenance,
	RequestTypeReplacement,
}

// String implements fmt.Stringer.
func (t RequestType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known RequestType.
func (t RequestType) IsValid() bool {
	for _, candidate := range validRequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseRequestType converts raw input into a RequestType.
func ParseRequestType(value string) (RequestType, error) {
	for _, candidate := range validRequestTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request type %q", value)
}
