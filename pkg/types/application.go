package types

import "strings"

// ApplicationID identifies a deployed application instance.
type ApplicationID struct {
	Tenant      string
	Application string
	Instance    string
}

// NewApplicationID returns the id for tenant, application and instance. An
// empty instance means "default".
func NewApplicationID(tenant, application, instance string) (ApplicationID, error) {
	if instance == "" {
		instance = "default"
	}
	id := ApplicationID{Tenant: tenant, Application: application, Instance: instance}
	if err := id.Validate(); err != nil {
		return ApplicationID{}, err
	}
	return id, nil
}

// ParseApplicationID parses "tenant:application:instance". The instance may be omitted.
func ParseApplicationID(s string) (ApplicationID, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return NewApplicationID(parts[0], parts[1], "")
	case 3:
		return NewApplicationID(parts[0], parts[1], parts[2])
	}
	return ApplicationID{}, NewValidationErrorf("application id must be on the form tenant:application:instance, got '%s'", s)
}

// Validate checks that every part is set and free of separators.
func (a ApplicationID) Validate() error {
	for _, part := range []string{a.Tenant, a.Application, a.Instance} {
		if part == "" {
			return NewValidationErrorf("application id '%s' has an empty part", a)
		}
		if strings.ContainsAny(part, ": /") {
			return NewValidationErrorf("application id part '%s' contains an illegal character", part)
		}
	}
	return nil
}

// IsZero returns true for the zero ApplicationID.
func (a ApplicationID) IsZero() bool {
	return a == ApplicationID{}
}

func (a ApplicationID) String() string {
	return a.Tenant + ":" + a.Application + ":" + a.Instance
}

// MarshalText encodes the id in its string form, in JSON, YAML and map keys.
func (a ApplicationID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (a *ApplicationID) UnmarshalText(text []byte) error {
	id, err := ParseApplicationID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
