package reconcile

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is an optional attribute value. The zero Value is absent, which is
// distinct from a present empty string.
type Value struct {
	String string
	Valid  bool
}

// Some returns a present Value holding s.
func Some(s string) Value {
	return Value{String: s, Valid: true}
}

// Absent returns the absent Value.
func Absent() Value {
	return Value{}
}

// OrEmpty returns the held string, or "" when absent.
func (v Value) OrEmpty() string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// Scan implements sql.Scanner so Value can be used directly in gorm models.
func (v *Value) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = Value{}
	case string:
		*v = Some(s)
	case []byte:
		*v = Some(string(s))
	default:
		*v = Some(fmt.Sprintf("%v", s))
	}
	return nil
}

// Value implements driver.Valuer. Absent values are stored as NULL.
func (v Value) Value() (driver.Value, error) {
	if !v.Valid {
		return nil, nil
	}
	return v.String, nil
}

// MarshalJSON encodes absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.String)
}

// UnmarshalJSON decodes null as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Some(s)
	return nil
}

// Field names a User attribute.
type Field string

// Known user fields, in record order.
const (
	FieldSamAccountName Field = "sam_account_name"
	FieldFirstName      Field = "first_name"
	FieldLastName       Field = "last_name"
	FieldEmail          Field = "email"
)

// Fields lists every User field in record order.
var Fields = []Field{FieldSamAccountName, FieldFirstName, FieldLastName, FieldEmail}

// User is a snapshot of one reconcilable user as read from a store.
// Two users are the same entity only through the identifier field.
type User struct {
	SamAccountName Value `json:"sam_account_name"`
	FirstName      Value `json:"first_name"`
	LastName       Value `json:"last_name"`
	Email          Value `json:"email"`
}

// Accessor reads one attribute from a User.
type Accessor func(User) Value

var accessors = map[Field]Accessor{
	FieldSamAccountName: func(u User) Value { return u.SamAccountName },
	FieldFirstName:      func(u User) Value { return u.FirstName },
	FieldLastName:       func(u User) Value { return u.LastName },
	FieldEmail:          func(u User) Value { return u.Email },
}

// LookupField resolves a configured field name to a known Field.
// Matching ignores case, underscores and dashes, so "FirstName",
// "first_name" and "first-name" all name FieldFirstName.
func LookupField(name string) (Field, bool) {
	want := normalizeFieldName(name)
	if want == "" {
		return "", false
	}
	for _, f := range Fields {
		if normalizeFieldName(string(f)) == want {
			return f, true
		}
	}
	return "", false
}

// Get returns the value of field f. ok is false for unknown fields.
func (u User) Get(f Field) (v Value, ok bool) {
	get, ok := accessors[f]
	if !ok {
		return Value{}, false
	}
	return get(u), true
}

// With returns a copy of u with field f set to v. Unknown fields leave the copy unchanged.
func (u User) With(f Field, v Value) User {
	switch f {
	case FieldSamAccountName:
		u.SamAccountName = v
	case FieldFirstName:
		u.FirstName = v
	case FieldLastName:
		u.LastName = v
	case FieldEmail:
		u.Email = v
	}
	return u
}

func normalizeFieldName(name string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}
