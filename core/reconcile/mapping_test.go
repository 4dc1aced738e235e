package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileMapping(t *testing.T) {
	mapping, unresolved := CompileMapping(map[string]string{
		"sn":        "last_name",
		"givenName": "FirstName",
		"phone":     "TelephoneNumber",
		"mail":      "e-mail",
	})

	assert.Equal(t, []string{"phone=TelephoneNumber"}, unresolved)
	require.Equal(t, 3, mapping.Len())

	entries := mapping.Entries()
	assert.Equal(t, "givenName", entries[0].Key)
	assert.Equal(t, FieldFirstName, entries[0].Field)
	assert.Equal(t, "mail", entries[1].Key)
	assert.Equal(t, FieldEmail, entries[1].Field)
	assert.Equal(t, "sn", entries[2].Key)
	assert.Equal(t, FieldLastName, entries[2].Field)
}

func TestCompileMappingStrict(t *testing.T) {
	_, err := CompileMappingStrict(map[string]string{"x": "nope"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.Contains(t, err.Error(), "x=nope")

	mapping, err := CompileMappingStrict(map[string]string{"mail": "email"})
	require.NoError(t, err)
	assert.Equal(t, 1, mapping.Len())
}

func TestFieldMapping_NeedsUpdate(t *testing.T) {
	mapping, _ := CompileMapping(map[string]string{
		"givenName": "first_name",
		"sn":        "last_name",
		"mail":      "email",
	})

	users := []User{
		{},
		{SamAccountName: Some("a")},
		{FirstName: Some("Ann")},
		{FirstName: Some("")},
		{FirstName: Some("Ann"), LastName: Some("Lee"), Email: Some("ann@example.com")},
		{FirstName: Some("Ann"), LastName: Some("Lee"), Email: Some("ann@example.org")},
	}

	for i, a := range users {
		for j, b := range users {
			equal := a.FirstName == b.FirstName && a.LastName == b.LastName && a.Email == b.Email
			assert.Equal(t, !equal, mapping.NeedsUpdate(a, b), "pair %d,%d", i, j)
			assert.Equal(t, mapping.NeedsUpdate(a, b), mapping.NeedsUpdate(b, a), "symmetry %d,%d", i, j)
		}
	}
}

func TestFieldMapping_NoResolvableFields(t *testing.T) {
	mapping, unresolved := CompileMapping(map[string]string{"a": "nope", "b": ""})
	assert.Len(t, unresolved, 2)
	assert.Equal(t, 0, mapping.Len())

	a := User{FirstName: Some("x"), Email: Some("x@y")}
	b := User{FirstName: Some("y")}
	assert.False(t, mapping.NeedsUpdate(a, b))
	assert.Empty(t, mapping.Diff(a, b))

	var nilMapping *FieldMapping
	assert.False(t, nilMapping.NeedsUpdate(a, b))
	assert.Equal(t, 0, nilMapping.Len())
}

func TestFieldMapping_Diff(t *testing.T) {
	mapping, _ := CompileMapping(map[string]string{
		"givenName": "first_name",
		"sn":        "last_name",
		"mail":      "email",
	})
	a := User{FirstName: Some("Ann"), LastName: Some("Lee"), Email: Some("a@x")}
	b := User{FirstName: Some("Ann"), LastName: Some("Li"), Email: Absent()}

	assert.Equal(t, []string{"mail", "sn"}, mapping.Diff(a, b))
	assert.Nil(t, mapping.Diff(a, a))
}

func TestSelector(t *testing.T) {
	s := NewSelector("SamAccountName")
	assert.True(t, s.Resolvable())
	assert.Equal(t, FieldSamAccountName, s.Field())
	assert.Equal(t, "alice", s.Identifier(User{SamAccountName: Some("alice")}))
	assert.Equal(t, "", s.Identifier(User{}))

	missing := NewSelector("objectGUID")
	assert.False(t, missing.Resolvable())
	assert.Equal(t, "objectGUID", missing.Name())
	assert.Equal(t, "", missing.Identifier(User{SamAccountName: Some("alice")}))

	byEmail := NewSelector("email")
	assert.Equal(t, "alice@example.com", byEmail.Identifier(User{Email: Some("alice@example.com")}))
}

func TestLookupField(t *testing.T) {
	tests := []struct {
		name string
		want Field
		ok   bool
	}{
		{"sam_account_name", FieldSamAccountName, true},
		{"SamAccountName", FieldSamAccountName, true},
		{"first-name", FieldFirstName, true},
		{" LastName ", FieldLastName, true},
		{"EMAIL", FieldEmail, true},
		{"", "", false},
		{"NonExistingProperty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LookupField(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUser_GetAndWith(t *testing.T) {
	u := User{}.With(FieldFirstName, Some("Ann")).With(FieldEmail, Some(""))

	v, ok := u.Get(FieldFirstName)
	assert.True(t, ok)
	assert.Equal(t, Some("Ann"), v)

	v, ok = u.Get(FieldEmail)
	assert.True(t, ok)
	assert.True(t, v.Valid)
	assert.Equal(t, "", v.String)

	_, ok = u.Get(Field("phone"))
	assert.False(t, ok)
	assert.Equal(t, u, u.With(Field("phone"), Some("x")))
}

func TestValue_JSON(t *testing.T) {
	u := User{SamAccountName: Some("ann"), Email: Some("")}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sam_account_name":"ann","first_name":null,"last_name":null,"email":""}`, string(data))

	var back User
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, u, back)
}

func TestValue_Scan(t *testing.T) {
	var v Value
	require.NoError(t, v.Scan(nil))
	assert.Equal(t, Absent(), v)

	require.NoError(t, v.Scan([]byte("bytes")))
	assert.Equal(t, Some("bytes"), v)

	require.NoError(t, v.Scan(int64(42)))
	assert.Equal(t, Some("42"), v)

	dv, err := Absent().Value()
	require.NoError(t, err)
	assert.Nil(t, dv)

	dv, err = Some("x").Value()
	require.NoError(t, err)
	assert.Equal(t, "x", dv)
}
